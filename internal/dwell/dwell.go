// Package dwell implements the hover-and-blink key commit state machine.
package dwell

import "time"

// DefaultDuration is how long gaze must rest on a key before a blink commits it.
const DefaultDuration = 600 * time.Millisecond

// State is the machine state.
type State int

const (
	// Idle means no key is hovered.
	Idle State = iota
	// Hovering means a key is hovered and its dwell timer is running.
	Hovering
)

func (s State) String() string {
	switch s {
	case Hovering:
		return "hovering"
	default:
		return "idle"
	}
}

// Machine tracks the hovered key and decides when it is committed.
//
// A commit needs the same key hovered continuously for at least the dwell
// duration and a debounced blink at the moment the duration is checked.
// Changing keys restarts the timer. After a commit the timer restarts from
// the commit time so a held hover and blink repeats the key.
//
// Frames without a face pause the timer rather than resetting it: the time
// between Pause and the next Step is not counted toward the dwell.
type Machine struct {
	duration time.Duration
	state    State
	key      string
	start    time.Time
	paused   bool
	pausedAt time.Time
}

// New creates a Machine with the given dwell duration.
func New(duration time.Duration) *Machine {
	if duration < 0 {
		duration = 0
	}
	return &Machine{duration: duration}
}

// SetDuration changes the dwell duration; a running hover keeps its start time.
func (m *Machine) SetDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.duration = d
}

// Duration returns the dwell duration.
func (m *Machine) Duration() time.Duration {
	return m.duration
}

// Step advances the machine by one frame. key/hovering is the Key Locator
// result and blink the debounced blink state. It returns the committed key
// when a commit fires.
func (m *Machine) Step(key string, hovering, blink bool, now time.Time) (string, bool) {
	m.resume(now)

	if !hovering {
		m.state = Idle
		m.key = ""
		return "", false
	}

	if m.state == Idle || key != m.key {
		m.state = Hovering
		m.key = key
		m.start = now
		return "", false
	}

	if now.Sub(m.start) >= m.duration && blink {
		m.start = now
		return key, true
	}
	return "", false
}

// Pause freezes the dwell timer until the next Step.
func (m *Machine) Pause(now time.Time) {
	if m.paused {
		return
	}
	m.paused = true
	m.pausedAt = now
}

func (m *Machine) resume(now time.Time) {
	if !m.paused {
		return
	}
	m.paused = false
	if m.state == Hovering {
		if gap := now.Sub(m.pausedAt); gap > 0 {
			m.start = m.start.Add(gap)
		}
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Key returns the hovered key, if any.
func (m *Machine) Key() (string, bool) {
	return m.key, m.state == Hovering
}

// Paused reports whether the timer is frozen.
func (m *Machine) Paused() bool {
	return m.paused
}

// Elapsed returns the counted hover time at now.
func (m *Machine) Elapsed(now time.Time) time.Duration {
	if m.state != Hovering {
		return 0
	}
	end := now
	if m.paused {
		end = m.pausedAt
	}
	if d := end.Sub(m.start); d > 0 {
		return d
	}
	return 0
}

// Progress returns Elapsed as a fraction of the dwell duration, capped at 1.
func (m *Machine) Progress(now time.Time) float64 {
	if m.state != Hovering {
		return 0
	}
	if m.duration == 0 {
		return 1
	}
	p := float64(m.Elapsed(now)) / float64(m.duration)
	if p > 1 {
		return 1
	}
	return p
}

// Reset returns the machine to Idle.
func (m *Machine) Reset() {
	m.state = Idle
	m.key = ""
	m.start = time.Time{}
	m.paused = false
}
