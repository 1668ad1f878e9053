// Package highlight marks the most recently created stake for a transient
// emphasis in the withdraw listing, self-clearing after a fixed duration.
package highlight

import (
	"sync"
	"time"
)

// Tracker remembers at most one highlighted stake id at a time.
type Tracker struct {
	mu    sync.Mutex
	id    string
	timer *time.Timer
	ttl   time.Duration
}

// NewTracker creates a tracker whose marks clear after ttl.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{ttl: ttl}
}

// Mark highlights the given stake id, replacing any previous mark and
// resetting the clear timer.
func (t *Tracker) Mark(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = id
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.ttl, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.id == id {
			t.id = ""
		}
	})
}

// Current returns the highlighted stake id, empty when none.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// Stop cancels the pending clear timer. Used on teardown.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.id = ""
}
