package services

import (
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
)

// ConsentGate runs the tracking entry routine at most once per page view,
// and only after statistics consent is confirmed.
type ConsentGate struct {
	started bool
}

// NewConsentGate creates a gate that has not run yet.
func NewConsentGate() *ConsentGate {
	return &ConsentGate{}
}

// Start runs fn immediately when consent is granted and the document has
// finished loading. Otherwise it waits for the consent or load notification
// that first confirms consent. Repeated notifications never run fn twice.
func (g *ConsentGate) Start(h host.Host, fn func()) {
	h.Listen(host.KindConsentAccepted, func(host.Notification) {
		if h.Consent().Granted() {
			g.run(fn)
		}
	})

	if h.DocumentComplete() {
		if h.Consent().Granted() {
			g.run(fn)
		}
		return
	}

	h.Listen(host.KindLoad, func(host.Notification) {
		if h.Consent().Granted() {
			g.run(fn)
		}
	})
}

// Started reports whether the entry routine ran.
func (g *ConsentGate) Started() bool {
	return g.started
}

func (g *ConsentGate) run(fn func()) {
	if g.started {
		return
	}
	g.started = true
	fn()
}
