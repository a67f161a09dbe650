// Package host defines the browser runtime contract the tracking engine is
// mounted into. The engine never touches a concrete DOM, timer or storage
// implementation; everything it observes or persists goes through these
// interfaces.
//
// All callbacks registered through a Host must be delivered from a single
// event loop. The engine holds no locks and relies on that serialization.
package host

import (
	"net/url"
	"time"
)

// Storage is a browser key/value store. Get reports absent values and
// unavailable storage alike as ("", false); Set fails when the store is full
// or unavailable.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Element is a DOM element.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() string
	Attr(name string) (string, bool)
	TextContent() string
	ClassName() string
	// Parent returns nil at the document root.
	Parent() Element
	// Matches and Closest return an error for selectors with invalid syntax.
	Matches(selector string) (bool, error)
	Closest(selector string) (Element, error)
}

// VideoEventKind is a media event delivered to a video element listener.
type VideoEventKind string

const (
	VideoPlay       VideoEventKind = "play"
	VideoTimeUpdate VideoEventKind = "timeupdate"
	VideoEnded      VideoEventKind = "ended"
)

// Video is a <video> element with its media state.
type Video interface {
	Element
	Autoplay() bool
	Muted() bool
	Loop() bool
	Src() string
	CurrentSrc() string
	CurrentTime() float64
	Duration() float64
	// InlinePosition is the element's inline style position property.
	InlinePosition() string
	// ComputedZIndex reports false when the z-index is auto.
	ComputedZIndex() (int, bool)
	ObjectFit() string
	On(kind VideoEventKind, fn func())
}

// Document is the page's DOM.
type Document interface {
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
	Videos() []Video
	Body() Element
	// Cookie returns the raw document cookie string.
	Cookie() string
}

// ConsentState is the statistics consent reported by the consent framework.
type ConsentState struct {
	// FrameworkPresent is false when no consent framework runs on the page.
	FrameworkPresent bool
	Statistics       bool
}

// Granted reports whether statistics tracking may start.
func (c ConsentState) Granted() bool {
	return !c.FrameworkPresent || c.Statistics
}

// Queue is the append-only outbound analytics queue.
type Queue interface {
	Push(record map[string]any)
}

// Host is the page runtime.
type Host interface {
	Location() *url.URL
	Referrer() string
	UserAgent() string
	Document() Document
	DocumentComplete() bool
	Consent() ConsentState

	SessionStorage() Storage
	LocalStorage() Storage
	Queue() Queue

	Now() time.Time
	// Every runs fn repeatedly for the page lifetime.
	Every(interval time.Duration, fn func())

	Listen(kind NotificationKind, fn func(Notification))
	// OnElementAdded delivers elements with the given tag inserted after the call.
	OnElementAdded(tag string, fn func(Element))
	OnVisibilityChange(el Element, fn func(visible bool))

	// Global returns a page global the embedder explicitly exported.
	Global(name string) (any, bool)
}
