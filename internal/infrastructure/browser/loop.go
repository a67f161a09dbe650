package browser

import (
	"time"
)

// Loop is a virtual-clock event loop. Time only moves when Advance is
// called, and due timers run in order of their due time, then registration.
type Loop struct {
	now    time.Time
	timers []*timer
	seq    int
}

type timer struct {
	interval time.Duration
	next     time.Time
	seq      int
	fn       func()
}

// NewLoop creates a loop whose clock starts at start.
func NewLoop(start time.Time) *Loop {
	return &Loop{now: start}
}

// Now returns the virtual time.
func (l *Loop) Now() time.Time {
	return l.now
}

// Every schedules fn every interval, first one interval from now.
func (l *Loop) Every(interval time.Duration, fn func()) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	l.seq++
	l.timers = append(l.timers, &timer{
		interval: interval,
		next:     l.now.Add(interval),
		seq:      l.seq,
		fn:       fn,
	})
}

// Advance moves the clock forward by d, running every timer that falls due.
func (l *Loop) Advance(d time.Duration) {
	target := l.now.Add(d)
	for {
		t := l.nextDue(target)
		if t == nil {
			break
		}
		l.now = t.next
		t.next = t.next.Add(t.interval)
		t.fn()
	}
	l.now = target
}

func (l *Loop) nextDue(target time.Time) *timer {
	var due *timer
	for _, t := range l.timers {
		if t.next.After(target) {
			continue
		}
		if due == nil || t.next.Before(due.next) || (t.next.Equal(due.next) && t.seq < due.seq) {
			due = t
		}
	}
	return due
}
