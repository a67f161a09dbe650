package sink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
)

func TestSendPostsForm(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		got = map[string]string{
			"event_name": r.PostFormValue("event_name"),
			"event_data": r.PostFormValue("event_data"),
			"page_url":   r.PostFormValue("page_url"),
			"token":      r.PostFormValue("token"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewHTTPSink(srv.URL, srv.Client()).Send(context.Background(), tracking.SinkRecord{
		EventName: "landing",
		EventData: `{"page_views":1}`,
		PageURL:   "https://shop.example.com/?a=1&b=2",
		Token:     "tok",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got["event_name"] != "landing" || got["event_data"] != `{"page_views":1}` ||
		got["page_url"] != "https://shop.example.com/?a=1&b=2" || got["token"] != "tok" {
		t.Errorf("form = %v", got)
	}
}

func TestSendRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if err := NewHTTPSink(srv.URL, nil).Send(context.Background(), tracking.SinkRecord{EventName: "x"}); err == nil {
		t.Error("expected an error for a 403 response")
	}
}
