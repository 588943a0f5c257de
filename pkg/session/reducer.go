package session

import (
	"strings"

	"github.com/docvoice/roomlink/pkg/credential"
)

// Event is something that may change the State.
type Event interface{ event() }

type (
	// JoinRequested is a user join action.
	JoinRequested struct {
		Attempt  Attempt
		Identity string
		Label    string
	}
	// BrokerResolved delivers a credential for the attempt.
	BrokerResolved struct {
		Attempt    Attempt
		Credential credential.Credential
	}
	// BrokerFailed delivers the failure of the attempt.
	BrokerFailed struct {
		Attempt Attempt
		Err     error
	}
	// LeaveRequested is a user leave action.
	LeaveRequested struct{}
	// EngineDisconnected is a notification from the conference engine.
	EngineDisconnected struct{}
)

func (JoinRequested) event()      {}
func (BrokerResolved) event()     {}
func (BrokerFailed) event()       {}
func (LeaveRequested) event()     {}
func (EngineDisconnected) event() {}

// Reduce returns the state that follows s after e.
// Events that don't apply to s return s unchanged.
func Reduce(s State, e Event) State {
	if s == nil {
		s = Idle{}
	}
	switch e := e.(type) {
	case JoinRequested:
		switch s.(type) {
		case Idle, Failed:
		default:
			// only one request at a time, and a live session has to be left first
			return s
		}
		if strings.TrimSpace(e.Identity) == "" {
			return Failed{Message: credential.MsgIdentityRequired, Kind: credential.KindValidation}
		}
		return Requesting{Attempt: e.Attempt}
	case BrokerResolved:
		if !isPending(s, e.Attempt) {
			return s
		}
		if !e.Credential.IsValid() {
			return Failed{Message: credential.MsgMalformed, Kind: credential.KindMalformed}
		}
		return Connected{Credential: e.Credential}
	case BrokerFailed:
		if !isPending(s, e.Attempt) {
			return s
		}
		return Failed{Message: credential.Message(e.Err), Kind: credential.KindOf(e.Err)}
	case LeaveRequested, EngineDisconnected:
		return Idle{}
	}
	return s
}

// isPending tells whether s still waits for the result of the attempt.
func isPending(s State, attempt Attempt) bool {
	r, ok := s.(Requesting)
	return ok && r.Attempt == attempt
}
