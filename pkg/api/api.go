// Package api defines the wire formats shared by the client, the session broker
// and the conference signaling.
//
// The session broker speaks plain JSON over HTTP:
//
//	POST /create-room-and-token {"participant_name":"Ann","room_name":"team-standup"}
//	200 {"token":"eyJ...","room_name":"team-standup","ws_url":"wss://media.example.com"}
//	4xx/5xx {"detail":"Room is full"}
//
// The conference signaling is a stream of JSON-encoded "packets" of the following structure:
//
//	t - (required) one of the predefined packet types;
//	p - (optional) packet payload with arbitrary data.
//
// Example:
//
//	{"t":1,"p":{"type":"offer","sdp":"v=0..."}}
package api

import (
	"github.com/goccy/go-json"
)

// Broker endpoints.
const (
	CreateRoomAndTokenPath = "/create-room-and-token"
	GetTokenPath           = "/get-token"
	HealthPath             = "/health"
)

// CredentialRequest asks the broker for a room access token.
// An empty RoomName is omitted, so the broker picks a name itself.
type CredentialRequest struct {
	ParticipantName string `json:"participant_name"`
	RoomName        string `json:"room_name,omitempty"`
}

type CredentialResponse struct {
	Token    string `json:"token"`
	RoomName string `json:"room_name"`
	WsUrl    string `json:"ws_url"`
}

// ErrorResponse is a structured broker error.
// The detail is kept raw because validation errors may carry a list there.
type ErrorResponse struct {
	Detail json.RawMessage `json:"detail,omitempty"`
}

// DetailText returns the detail when it's a non-empty string.
func (e ErrorResponse) DetailText() (string, bool) {
	if len(e.Detail) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func NewErrorResponse(detail string) ErrorResponse {
	raw, _ := json.Marshal(detail)
	return ErrorResponse{Detail: raw}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

const HealthyStatus = "healthy"
