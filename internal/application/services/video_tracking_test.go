package services

import (
	"reflect"
	"testing"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/browser"
)

const videoPage = `<html><body>
<video id="promo" data-title="Promo" src="/promo.mp4"></video>
<div class="site-hero"><video id="bg" src="/bg.mp4"></video></div>
<video id="quiet" muted><source src="/quiet.mp4"></video>
<div id="slot"></div>
</body></html>`

func videoDefinitions() []tracking.EventDefinition {
	return []tracking.EventDefinition{
		{Name: "video_start", Enabled: true, Type: tracking.EventTypeVideo, Trigger: tracking.TriggerPlay},
		{Name: "video_progress", Enabled: true, Type: tracking.EventTypeVideo, Trigger: tracking.TriggerProgress},
		{Name: "video_complete", Enabled: true, Type: tracking.EventTypeVideo, Trigger: tracking.TriggerEnded},
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestVideoLifecycle(t *testing.T) {
	page := newPage(t, browser.PageConfig{HTML: videoPage})
	engine := startEngine(t, page, videoDefinitions()...)

	must(t, page.PlayVideo("#promo"))
	must(t, page.PlayVideo("#promo"))
	must(t, page.SeekVideo("#promo", 30, 100))
	must(t, page.SeekVideo("#promo", 80, 100))
	must(t, page.SeekVideo("#promo", 10, 100))
	must(t, page.EndVideo("#promo"))
	must(t, page.EndVideo("#promo"))

	if got := page.DataLayer().Count("video_start"); got != 1 {
		t.Errorf("video_start fired %d times, want 1", got)
	}
	if got := eventValues(page, "video_progress", "video_percent"); !reflect.DeepEqual(got, []any{25, 50, 75}) {
		t.Errorf("video_percent = %v", got)
	}
	if got := page.DataLayer().Count("video_complete"); got != 1 {
		t.Errorf("video_complete fired %d times, want 1", got)
	}
	if got := eventValues(page, "video_start", "video_title"); !reflect.DeepEqual(got, []any{"Promo"}) {
		t.Errorf("video_title = %v", got)
	}
	if got := eventValues(page, "video_complete", "video_url"); !reflect.DeepEqual(got, []any{"/promo.mp4"}) {
		t.Errorf("video_url = %v", got)
	}
	if watched := engine.Tracker().Snapshot().VideoWatched; watched != 100 {
		t.Errorf("video watched = %d, want 100", watched)
	}
}

func TestVideoBackgroundAndMuted(t *testing.T) {
	page := newPage(t, browser.PageConfig{HTML: videoPage})
	startEngine(t, page, videoDefinitions()...)

	must(t, page.PlayVideo("#bg"))
	must(t, page.PlayVideo("#quiet"))
	if n := page.DataLayer().Len(); n != 0 {
		t.Fatalf("expected no events from background or muted videos, got %v", page.DataLayer().Events())
	}

	must(t, page.MuteVideo("#quiet", false))
	must(t, page.PlayVideo("#quiet"))
	if got := eventValues(page, "video_start", "video_url"); !reflect.DeepEqual(got, []any{"/quiet.mp4"}) {
		t.Errorf("video_url = %v", got)
	}
	if got := eventValues(page, "video_start", "video_title"); !reflect.DeepEqual(got, []any{"video_2"}) {
		t.Errorf("video_title = %v", got)
	}
}

func TestVideoRequireUnmutedOff(t *testing.T) {
	page := newPage(t, browser.PageConfig{HTML: videoPage})
	startEngine(t, page, tracking.EventDefinition{
		Name: "video_start", Enabled: true, Type: tracking.EventTypeVideo, Trigger: tracking.TriggerPlay,
		Params: tracking.Params{"require_unmuted": "0"},
	})

	must(t, page.PlayVideo("#quiet"))
	if page.DataLayer().Count("video_start") != 1 {
		t.Error("expected muted playback to count")
	}
}

func TestVideoInsertedLater(t *testing.T) {
	page := newPage(t, browser.PageConfig{HTML: videoPage})
	startEngine(t, page, videoDefinitions()...)

	must(t, page.AppendHTML("#slot", `<figure><video id="late" src="/late.mp4"></video></figure>`))
	must(t, page.PlayVideo("#late"))

	if got := eventValues(page, "video_start", "video_title"); !reflect.DeepEqual(got, []any{"dynamic_video"}) {
		t.Errorf("video_title = %v", got)
	}
}

func TestIsBackgroundVideo(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		params tracking.Params
		want   bool
	}{
		{"plain", `<video id="v" src="/a.mp4"></video>`, nil, false},
		{"autoplay muted", `<video id="v" autoplay muted></video>`, nil, true},
		{"inline muted", `<video id="v" playsinline muted></video>`, nil, true},
		{"excluded ancestor", `<div class="Banner-wrap"><video id="v"></video></div>`, nil, true},
		{"custom exclude", `<div class="promo"><video id="v"></video></div>`, tracking.Params{"exclude_classes": "promo"}, true},
		{"empty exclude entry", `<div class="x"><video id="v"></video></div>`, tracking.Params{"exclude_classes": "promo,,"}, false},
		{"negative z-index", `<video id="v" style="position: absolute; z-index: -1"></video>`, nil, true},
		{"cover fill", `<video id="v" style="position:fixed;object-fit:cover"></video>`, nil, true},
		{"static cover", `<video id="v" style="object-fit:cover"></video>`, nil, false},
		{"tracking forced", `<video id="v" autoplay muted></video>`, tracking.Params{"track_background": "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newPage(t, browser.PageConfig{HTML: "<html><body>" + tt.html + "</body></html>"})
			video, err := page.Video("#v")
			must(t, err)
			var v host.Video = video
			if got := IsBackgroundVideo(v, tt.params); got != tt.want {
				t.Errorf("IsBackgroundVideo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoEndedFiresEveryDefinition(t *testing.T) {
	page := newPage(t, browser.PageConfig{HTML: videoPage})
	startEngine(t, page,
		tracking.EventDefinition{Name: "video_complete", Enabled: true, Type: tracking.EventTypeVideo, Trigger: tracking.TriggerEnded},
		tracking.EventDefinition{Name: "video_complete_b", Enabled: true, Type: tracking.EventTypeVideo, Trigger: tracking.TriggerEnded},
	)

	must(t, page.EndVideo("#promo"))
	must(t, page.EndVideo("#promo"))
	if got := page.DataLayer().Events(); !reflect.DeepEqual(got, []string{"video_complete", "video_complete_b"}) {
		t.Errorf("events = %v", got)
	}
}
