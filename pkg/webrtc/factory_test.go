package webrtc

import (
	"io"
	"testing"

	"github.com/docvoice/roomlink/pkg/config"
	"github.com/docvoice/roomlink/pkg/logger"
)

func TestNewPeers(t *testing.T) {
	conf := config.Webrtc{
		IceServers: []config.IceServer{
			{Urls: "stun:stun.l.google.com:19302"},
			{Urls: "turn:turn.local:3478", Username: "room", Credential: "link"},
		},
		IcePorts: config.IcePorts{Min: 40000, Max: 40100},
		LogLevel: 3,
	}
	p, err := NewPeers(conf, logger.NewWriter(io.Discard))
	if err != nil {
		t.Fatalf("peers: %v", err)
	}
	if len(p.ice) != 2 || p.ice[1].Username != "room" || p.ice[1].URLs[0] != "turn:turn.local:3478" {
		t.Errorf("wrong ICE servers %+v", p.ice)
	}
	peer, err := p.NewPeer()
	if err != nil {
		t.Fatalf("peer: %v", err)
	}
	_ = peer.Close()
}

func TestNewPeersBadConfig(t *testing.T) {
	tests := []struct {
		name string
		conf config.Webrtc
	}{
		{name: "turn without credential", conf: config.Webrtc{IceServers: []config.IceServer{{Urls: "turn:turn.local:3478"}}}},
		{name: "reversed ports", conf: config.Webrtc{IcePorts: config.IcePorts{Min: 40100, Max: 40000}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewPeers(test.conf, logger.NewWriter(io.Discard)); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestIceServersEmpty(t *testing.T) {
	if ice := iceServers(nil); ice == nil || len(ice) != 0 {
		t.Errorf("expected an empty list, got %v", ice)
	}
}
