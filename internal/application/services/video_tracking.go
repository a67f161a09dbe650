package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
)

const (
	defaultProgressThresholds = "25,50,75"
	defaultExcludeClasses     = "background,hero,banner,cover,bg-video"
)

// videoTracker attaches the video definitions to every <video> on the page,
// including elements inserted later.
type videoTracker struct {
	d       *TriggerDispatcher
	events  []tracking.EventDefinition
	merged  tracking.Params
	tracked map[host.Element]bool
}

// videoState is shared by every definition attached to one video. Ended
// is tracked per definition name.
type videoState struct {
	started       bool
	ended         map[string]bool
	progressFired map[int]bool
}

func newVideoTracker(d *TriggerDispatcher, events []tracking.EventDefinition) *videoTracker {
	merged := tracking.Params{}
	for _, def := range events {
		for k, v := range def.Params {
			merged[k] = v
		}
	}
	return &videoTracker{
		d:       d,
		events:  events,
		merged:  merged,
		tracked: make(map[host.Element]bool),
	}
}

func (v *videoTracker) start() {
	if doc := v.d.host.Document(); doc != nil {
		for i, video := range doc.Videos() {
			id := attrOr(video, "data-title", attrOr(video, "title", "video_"+strconv.Itoa(i)))
			v.track(video, id)
		}
	}
	v.d.host.OnElementAdded("video", func(el host.Element) {
		video, ok := el.(host.Video)
		if !ok {
			return
		}
		v.track(video, attrOr(video, "data-title", "dynamic_video"))
	})
}

func (v *videoTracker) track(video host.Video, id string) {
	if v.tracked[video] {
		return
	}
	v.tracked[video] = true

	if IsBackgroundVideo(video, v.merged) {
		v.d.logger.Debug("Skipping background video", "video", id)
		return
	}

	video.On(host.VideoTimeUpdate, func() {
		if percent, ok := playbackPercent(video); ok {
			v.d.tracker.RecordVideoProgress(percent)
		}
	})

	state := &videoState{ended: make(map[string]bool), progressFired: make(map[int]bool)}
	for _, def := range v.events {
		// invalid definitions only feed the merged background params
		if !def.Enabled || def.Validate() != nil {
			continue
		}
		requireUnmuted := def.Params["require_unmuted"] != "0" && def.Params["require_unmuted"] != "false"
		audible := func() bool { return !requireUnmuted || !video.Muted() }

		switch def.EffectiveTrigger() {
		case tracking.TriggerPlay:
			video.On(host.VideoPlay, func() {
				v.d.guard(def.Name, "play", func() {
					if state.started || !audible() || !v.d.conditionsHold(def) {
						return
					}
					state.started = true
					v.emit(def, id, "video_url", videoURL(video))
				})
			})

		case tracking.TriggerProgress:
			thresholds := def.Params.Thresholds("thresholds", defaultProgressThresholds)
			video.On(host.VideoTimeUpdate, func() {
				v.d.guard(def.Name, "progress", func() {
					percent, ok := playbackPercent(video)
					if !ok || !audible() || !v.d.conditionsHold(def) {
						return
					}
					for _, t := range thresholds {
						if !t.Valid || percent < t.Value || state.progressFired[t.Value] {
							continue
						}
						state.progressFired[t.Value] = true
						v.emit(def, id, "video_percent", t.Value)
					}
				})
			})

		case tracking.TriggerEnded:
			video.On(host.VideoEnded, func() {
				v.d.guard(def.Name, "ended", func() {
					if state.ended[def.Name] || !audible() || !v.d.conditionsHold(def) {
						return
					}
					state.ended[def.Name] = true
					v.emit(def, id, "video_url", videoURL(video))
				})
			})
		}
	}
	v.d.logger.Debug("Tracking video", "video", id)
}

func (v *videoTracker) emit(def tracking.EventDefinition, id, key string, value any) {
	payload := v.d.basePayload()
	payload["video_title"] = id
	payload[key] = value
	v.d.emitter.Emit(def.Name, payload)
}

// playbackPercent is the rounded share of the video played so far. It reports
// false while the duration is unknown.
func playbackPercent(video host.Video) (int, bool) {
	duration := video.Duration()
	if duration == 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0, false
	}
	return int(math.Floor(video.CurrentTime()/duration*100 + 0.5)), true
}

// IsBackgroundVideo reports whether a video looks decorative: muted autoplay,
// inline muted playback, an ancestor with an excluded class, or a full-bleed
// positioned element. track_background disables the check.
func IsBackgroundVideo(video host.Video, params tracking.Params) bool {
	if params.Flag("track_background") {
		return false
	}

	if video.Autoplay() && video.Muted() && video.Loop() {
		return true
	}
	_, autoplayAttr := video.Attr("autoplay")
	_, mutedAttr := video.Attr("muted")
	if autoplayAttr && mutedAttr {
		return true
	}
	if _, inline := video.Attr("playsinline"); inline && video.Muted() {
		return true
	}

	exclude := params.List("exclude_classes", defaultExcludeClasses)
	for parent := video.Parent(); parent != nil; parent = parent.Parent() {
		classes := strings.ToLower(parent.ClassName())
		for _, class := range exclude {
			if class != "" && strings.Contains(classes, strings.ToLower(class)) {
				return true
			}
		}
	}

	switch video.InlinePosition() {
	case "absolute", "fixed":
		if z, ok := video.ComputedZIndex(); ok && z < 0 {
			return true
		}
		if video.ObjectFit() == "cover" {
			return true
		}
	}
	return false
}
