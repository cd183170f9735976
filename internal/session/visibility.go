package session

import "sync"

// visibilityPhase tracks how far presence resolution has progressed. All three
// phases converge to the single boolean from ShouldOffer.
type visibilityPhase int

const (
	phaseLoading visibilityPhase = iota
	phaseResolved
	phaseTimedOut
)

// Visibility decides whether the chat affordance should be offered at all.
// It never blocks on presence: after the timeout it answers true regardless,
// trading a possible false positive for guaranteed availability.
type Visibility struct {
	mu    sync.Mutex
	phase visibilityPhase
}

// NewVisibility starts in the loading phase.
func NewVisibility() *Visibility {
	return &Visibility{}
}

// MarkResolved records that presence data arrived. A timeout that already
// fired is not downgraded.
func (v *Visibility) MarkResolved() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.phase == phaseLoading {
		v.phase = phaseResolved
	}
}

// MarkTimedOut forces visibility open.
func (v *Visibility) MarkTimedOut() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.phase = phaseTimedOut
}

// TimedOut reports whether the fallback fired.
func (v *Visibility) TimedOut() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase == phaseTimedOut
}

// ShouldOffer computes the visibility boolean:
// true when someone else is online; true when a local profile exists but the
// online list is empty (treated as a presence-tracking gap, not as "nobody
// online"); true once the timeout fired; false otherwise.
func ShouldOffer(othersOnline, hasProfile, timedOut bool) bool {
	if timedOut {
		return true
	}
	if othersOnline {
		return true
	}
	return hasProfile
}
