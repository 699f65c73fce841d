// Package render coordinates a cloud render: dependency load, history
// fetch, aggregation, layout and paint. Every pass claims a sequence token
// and drops its work once a newer pass has started.
package render

import "errors"

var (
	// ErrDependencyUnavailable means the renderer's fonts failed to load.
	// It is terminal and not retried.
	ErrDependencyUnavailable = errors.New("renderer dependency unavailable")
	// ErrStale means a newer render superseded this one.
	ErrStale = errors.New("render superseded")
	// ErrBusy means another render held the gate.
	ErrBusy = errors.New("render already in progress")
)

// User-facing status messages.
const (
	MessageDependencyUnavailable = "Cloud renderer unavailable: font libraries failed to load."
	MessageFailed                = "Something went wrong while drawing the cloud."
	MessageEmpty                 = "Not enough data yet. Practice a few more phrases."
	MessageSlow                  = "Still arranging the cloud, large histories take a moment."
	MessageTooSmall              = "Not enough room to draw the cloud. Enlarge the window or lower the item sizes."
)

// Phase is a step of the render state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingLibs
	PhaseLoadingData
	PhaseComputing
	PhaseLayingOut
)

func (p Phase) String() string {
	switch p {
	case PhaseLoadingLibs:
		return "loading renderer"
	case PhaseLoadingData:
		return "loading history"
	case PhaseComputing:
		return "ranking targets"
	case PhaseLayingOut:
		return "laying out"
	default:
		return "idle"
	}
}

// Status is what the busy indicator shows.
type Status struct {
	Phase   Phase
	Busy    bool
	Message string
	Subtext string
	Token   uint64
	// Items is the number of items painted by the last finished render.
	Items int
	// Attempts is the number of attempts the render aggregated.
	Attempts int
	// MaxPosition is the last timeline position for the current window.
	MaxPosition int
}
