package broker

import (
	"strings"
	"testing"
)

func TestRoomName(t *testing.T) {
	if name, _ := RoomName(" team ", "p-"); name != "team" {
		t.Errorf("got %q", name)
	}
	a, err := RoomName("", "p-")
	if err != nil {
		t.Fatalf("%v", err)
	}
	b, _ := RoomName("", "p-")
	if !strings.HasPrefix(a, "p-") || len(a) != len("p-")+8 {
		t.Errorf("unexpected name %q", a)
	}
	if a == b {
		t.Errorf("names should differ, got %v twice", a)
	}
}
