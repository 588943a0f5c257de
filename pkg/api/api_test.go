package api

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestCredentialRequestRoomOmitted(t *testing.T) {
	tests := []struct {
		name string
		in   CredentialRequest
		want string
	}{
		{name: "no room", in: CredentialRequest{ParticipantName: "Ann"}, want: `{"participant_name":"Ann"}`},
		{
			name: "room",
			in:   CredentialRequest{ParticipantName: "Ann", RoomName: "team-standup"},
			want: `{"participant_name":"Ann","room_name":"team-standup"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		body string
		text string
		ok   bool
	}{
		{body: `{"detail":"Room is full"}`, text: "Room is full", ok: true},
		{body: `{"detail":""}`},
		{body: `{"detail":[{"loc":["body","participant_name"],"msg":"field required"}]}`},
		{body: `{}`},
	}
	for _, tt := range tests {
		var e ErrorResponse
		if err := json.Unmarshal([]byte(tt.body), &e); err != nil {
			t.Fatalf("%v: %v", tt.body, err)
		}
		text, ok := e.DetailText()
		if text != tt.text || ok != tt.ok {
			t.Errorf("%v: got (%q, %v), want (%q, %v)", tt.body, text, ok, tt.text, tt.ok)
		}
	}
	if text, _ := NewErrorResponse("x").DetailText(); text != "x" {
		t.Errorf("detail round trip has failed, got %v", text)
	}
}

func TestSignalPacket(t *testing.T) {
	b, err := Encode(SignalOffer, SessionDescription{Type: "offer", Sdp: "v=0"})
	if err != nil {
		t.Fatal(err)
	}
	in, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if in.T != SignalOffer {
		t.Errorf("wrong type %v", in.T)
	}
	sd := Unwrap[SessionDescription](in.Payload)
	if sd == nil || sd.Sdp != "v=0" {
		t.Errorf("wrong payload %v", sd)
	}
	if Unwrap[SessionDescription]([]byte("{")) != nil {
		t.Errorf("expected nil for broken payload")
	}
}
