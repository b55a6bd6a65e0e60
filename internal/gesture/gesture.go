// Package gesture distinguishes a short tap from a long hold. The UI reports
// press and release; holding past the threshold fires the long action and
// suppresses the short one on release.
package gesture

import "time"

// DefaultThreshold is the hold duration separating tap from long press.
const DefaultThreshold = 550 * time.Millisecond

// Action is the outcome of a completed press.
type Action int

const (
	ActionNone Action = iota
	ActionShort
	ActionLong
)

func (a Action) String() string {
	switch a {
	case ActionShort:
		return "short"
	case ActionLong:
		return "long"
	}
	return "none"
}

// Recognizer is a small state machine over press/release events. The clock is
// injected so tests run synchronously without real timers.
type Recognizer struct {
	threshold time.Duration
	now       func() time.Time

	pressed   bool
	pressedAt time.Time
	fired     bool
}

func NewRecognizer(threshold time.Duration, now func() time.Time) *Recognizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if now == nil {
		now = time.Now
	}
	return &Recognizer{threshold: threshold, now: now}
}

// Press enters the pressed state. A repeated press restarts the hold.
func (r *Recognizer) Press() {
	r.pressed = true
	r.fired = false
	r.pressedAt = r.now()
}

// Tick fires ActionLong exactly once when the threshold has elapsed while
// still pressed. A timer drives this in the UI; tests call it directly.
func (r *Recognizer) Tick() Action {
	if !r.pressed || r.fired {
		return ActionNone
	}
	if r.now().Sub(r.pressedAt) >= r.threshold {
		r.fired = true
		return ActionLong
	}
	return ActionNone
}

// Release leaves the pressed state. It fires ActionShort only when the long
// action has not fired yet and the threshold has not elapsed.
func (r *Recognizer) Release() Action {
	if !r.pressed {
		return ActionNone
	}
	r.pressed = false
	if r.fired {
		r.fired = false
		return ActionNone
	}
	if r.now().Sub(r.pressedAt) >= r.threshold {
		// Threshold elapsed but no Tick ran between; counts as the long action.
		return ActionLong
	}
	return ActionShort
}

// Classify resolves a complete press of the given duration against the
// default threshold, by driving a Recognizer on a manual clock.
func Classify(held time.Duration) Action {
	var t time.Time
	r := NewRecognizer(DefaultThreshold, func() time.Time { return t })
	r.Press()
	t = t.Add(held)
	if a := r.Tick(); a == ActionLong {
		r.Release()
		return ActionLong
	}
	return r.Release()
}
