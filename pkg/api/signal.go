package api

import (
	"fmt"

	"github.com/goccy/go-json"
)

type PT uint8

// Signaling packet codes.
const (
	SignalOffer   PT = 1
	SignalAnswer  PT = 2
	SignalTrickle PT = 3
	SignalLeave   PT = 4
)

func (p PT) String() string {
	switch p {
	case SignalOffer:
		return "Offer"
	case SignalAnswer:
		return "Answer"
	case SignalTrickle:
		return "Trickle"
	case SignalLeave:
		return "Leave"
	default:
		return "Unknown"
	}
}

type In struct {
	T       PT              `json:"t"`
	Payload json.RawMessage `json:"p,omitempty"` // should be json.RawMessage for 2-pass unmarshal
}

type Out struct {
	T       PT  `json:"t"`
	Payload any `json:"p,omitempty"`
}

type (
	SessionDescription struct {
		Type string `json:"type"`
		Sdp  string `json:"sdp"`
	}
	TrickleRequest struct {
		Candidate        string  `json:"candidate"`
		SdpMid           *string `json:"sdpMid,omitempty"`
		SdpMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
		UsernameFragment *string `json:"usernameFragment,omitempty"`
	}
	LeaveRequest struct {
		Reason string `json:"reason,omitempty"`
	}
)

var ErrMalformed = fmt.Errorf("malformed")

func Unwrap[T any](data []byte) *T {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil
	}
	return out
}

func Encode(t PT, payload any) ([]byte, error) { return json.Marshal(Out{T: t, Payload: payload}) }

func Decode(data []byte) (In, error) {
	var in In
	err := json.Unmarshal(data, &in)
	return in, err
}
