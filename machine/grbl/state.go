package grbl

import (
	"strings"

	"github.com/mastercactapus/gscan/coord"
)

// State is the operating mode reported by the controller.
type State int

const (
	StateUnknown State = iota
	StateIdle
	StateRun
	StateHold
	StateJog
	StateAlarm
	StateDoor
	StateCheck
	StateHome
	StateSleep
)

var stateNames = [...]string{
	StateUnknown: "Unknown",
	StateIdle:    "Idle",
	StateRun:     "Run",
	StateHold:    "Hold",
	StateJog:     "Jog",
	StateAlarm:   "Alarm",
	StateDoor:    "Door",
	StateCheck:   "Check",
	StateHome:    "Home",
	StateSleep:   "Sleep",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return stateNames[StateUnknown]
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseState maps a status report mode tag to a State.
//
// Grbl appends a sub-state to some modes (e.g. "Hold:0", "Door:1"); it is
// returned separately. Unrecognized tags map to StateUnknown.
func ParseState(tag string) (state State, sub string) {
	tag, sub, _ = strings.Cut(tag, ":")
	for i, name := range stateNames {
		if i == int(StateUnknown) {
			continue
		}
		if name == tag {
			return State(i), sub
		}
	}
	return StateUnknown, sub
}

// Status is the snapshot held by the Tracker.
type Status struct {
	State    State
	SubState string `json:",omitempty"`

	// Raw is the mode tag exactly as reported.
	Raw string

	MPos coord.Point
	WCO  coord.Point

	// HasPosition is false until a report carried a usable position.
	HasPosition bool
}

// Tracker holds the most recently reported machine state.
//
// Every status report overwrites the mode; no transitions are validated since
// the controller is authoritative.
type Tracker struct {
	cur Status
}

// Known reports whether a mode other than StateUnknown has been reported.
func (t *Tracker) Known() bool { return t.cur.State != StateUnknown }

func (t *Tracker) Status() Status { return t.cur }

// Reset forgets everything; used on disconnect and controller reset.
func (t *Tracker) Reset() { t.cur = Status{} }

// Update applies a status report. It returns true if the report carried
// enough information to derive the machine position.
func (t *Tracker) Update(rep *StatusReport) bool {
	t.cur.State = rep.State
	t.cur.SubState = rep.SubState
	t.cur.Raw = rep.Raw

	if wco, ok := coord.PointFrom(rep.Values["WCO"]); ok {
		t.cur.WCO = wco
	}

	if mpos, ok := coord.PointFrom(rep.Values["MPos"]); ok {
		t.cur.MPos = mpos
		t.cur.HasPosition = true
		return true
	}
	if wpos, ok := coord.PointFrom(rep.Values["WPos"]); ok {
		t.cur.MPos = wpos.Add(t.cur.WCO)
		t.cur.HasPosition = true
		return true
	}

	return false
}
