package queue

import (
	"reflect"
	"testing"
)

func TestDataLayerSubscribersSeeLaterRecords(t *testing.T) {
	q := NewDataLayer()
	q.Push(map[string]any{"event": "landing"})

	var seen []string
	q.Subscribe(func(r map[string]any) { seen = append(seen, r["event"].(string)) })
	q.Push(map[string]any{"event": "cta_click"})
	q.Push(map[string]any{"event": "cta_click"})

	if !reflect.DeepEqual(seen, []string{"cta_click", "cta_click"}) {
		t.Errorf("subscriber saw %v", seen)
	}
	if got := q.Events(); !reflect.DeepEqual(got, []string{"landing", "cta_click", "cta_click"}) {
		t.Errorf("Events() = %v", got)
	}
	if q.Count("cta_click") != 2 || q.Len() != 3 {
		t.Errorf("Count() = %d, Len() = %d", q.Count("cta_click"), q.Len())
	}

	records := q.Records()
	records[0] = nil
	if q.Records()[0] == nil {
		t.Error("Records() should return a copy")
	}
}
