// Package session drives a client through joining and leaving a conference room.
//
// The client is always in exactly one State:
//
//	Idle ──join──▶ Requesting ──ok──▶ Connected
//	                  │    ▲
//	                error  join (retry)
//	                  ▼    │
//	                  Failed
//
// Leaving or a disconnect of the conference engine brings any state back to Idle.
// Transitions are computed by Reduce, a pure function of the current state and
// an Event; the Controller serializes events and runs the side effects.
package session

import (
	"fmt"

	"github.com/docvoice/roomlink/pkg/credential"
	"github.com/rs/xid"
)

type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseRequesting
	PhaseConnected
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRequesting:
		return "requesting"
	case PhaseConnected:
		return "connected"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt identifies one join request, so its result can be told apart from
// results of earlier, abandoned requests.
type Attempt struct{ xid.ID }

func NewAttempt() Attempt { return Attempt{xid.New()} }

// State is one of Idle, Requesting, Connected or Failed.
type State interface {
	Phase() Phase
	fmt.Stringer
	state()
}

type (
	Idle       struct{}
	Requesting struct{ Attempt Attempt }
	Connected  struct{ Credential credential.Credential }
	Failed     struct {
		Message string
		Kind    credential.Kind
	}
)

func (Idle) Phase() Phase       { return PhaseIdle }
func (Requesting) Phase() Phase { return PhaseRequesting }
func (Connected) Phase() Phase  { return PhaseConnected }
func (Failed) Phase() Phase     { return PhaseFailed }

func (Idle) state()       {}
func (Requesting) state() {}
func (Connected) state()  {}
func (Failed) state()     {}

func (Idle) String() string         { return "idle" }
func (s Requesting) String() string { return "requesting [" + s.Attempt.String() + "]" }
func (s Connected) String() string  { return "connected [" + s.Credential.SessionName + "]" }
func (s Failed) String() string     { return "failed [" + s.Message + "]" }
