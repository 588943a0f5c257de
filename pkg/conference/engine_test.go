package conference

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docvoice/roomlink/pkg/api"
	"github.com/docvoice/roomlink/pkg/config"
	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/docvoice/roomlink/pkg/webrtc"
	gorilla "github.com/gorilla/websocket"
	pion "github.com/pion/webrtc/v3"
)

// room is a fake media server that answers offers.
type room struct {
	t       *testing.T
	factory *webrtc.Peers
	leave   bool // sends leave after the answer

	mu    sync.Mutex
	token string
	got   chan api.PT
}

func newRoom(t *testing.T, factory *webrtc.Peers, leave bool) *room {
	return &room{t: t, factory: factory, leave: leave, got: make(chan api.PT, 256)}
}

var upgrader = gorilla.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

func (r *room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/rtc" {
		http.NotFound(w, req)
		return
	}
	r.mu.Lock()
	r.token = req.URL.Query().Get("access_token")
	r.mu.Unlock()

	sock, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.t.Errorf("upgrade: %v", err)
		return
	}
	defer func() { _ = sock.Close() }()
	pc, err := r.factory.NewPeer()
	if err != nil {
		r.t.Errorf("peer: %v", err)
		return
	}
	defer func() { _ = pc.Close() }()

	send := func(t api.PT, payload any) {
		data, _ := api.Encode(t, payload)
		_ = sock.WriteMessage(gorilla.TextMessage, data)
	}
	for {
		_, message, err := sock.ReadMessage()
		if err != nil {
			return
		}
		packet, err := api.Decode(message)
		if err != nil {
			r.t.Errorf("decode: %v", err)
			return
		}
		select {
		case r.got <- packet.T:
		default:
		}
		if packet.T != api.SignalOffer {
			continue
		}
		sd := api.Unwrap[api.SessionDescription](packet.Payload)
		if sd == nil {
			r.t.Errorf("no offer")
			return
		}
		if err = pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sd.Sdp}); err != nil {
			r.t.Errorf("offer: %v", err)
			return
		}
		answer, err := pc.CreateAnswer(nil)
		if err != nil {
			r.t.Errorf("answer: %v", err)
			return
		}
		gathered := pion.GatheringCompletePromise(pc)
		if err = pc.SetLocalDescription(answer); err != nil {
			r.t.Errorf("answer: %v", err)
			return
		}
		<-gathered
		send(api.SignalAnswer, api.SessionDescription{Type: "answer", Sdp: pc.LocalDescription().SDP})
		if r.leave {
			send(api.SignalLeave, api.LeaveRequest{Reason: "room closed"})
		}
	}
}

func (r *room) wait(t *testing.T, pt api.PT) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case got := <-r.got:
			if got == pt {
				return
			}
		case <-timeout:
			t.Fatalf("no %v packet", pt)
		}
	}
}

func newTestEngine(t *testing.T) (*Engine, *webrtc.Peers) {
	t.Helper()
	log := logger.NewWriter(io.Discard)
	factory, err := webrtc.NewPeers(config.Webrtc{}, log)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	return New(factory, log), factory
}

func TestRemoteLeave(t *testing.T) {
	engine, factory := newTestEngine(t)
	r := newRoom(t, factory, true)
	server := httptest.NewServer(r)
	defer server.Close()

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{}, 1)
	engine.OnDisconnect(func() {
		mu.Lock()
		calls++
		mu.Unlock()
		done <- struct{}{}
	})

	if err := engine.Connect(server.URL, "secret"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("no disconnect notification")
	}
	// the socket and the peer close after the leave, nothing else is reported
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected a single notification, got %v", calls)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != "secret" {
		t.Errorf("wrong access token %q", r.token)
	}
}

func TestDisconnect(t *testing.T) {
	engine, factory := newTestEngine(t)
	r := newRoom(t, factory, false)
	server := httptest.NewServer(r)
	defer server.Close()

	notified := make(chan struct{}, 1)
	engine.OnDisconnect(func() { notified <- struct{}{} })

	if err := engine.Connect(strings.Replace(server.URL, "http", "ws", 1), "secret"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	r.wait(t, api.SignalOffer)

	engine.Disconnect()
	engine.Disconnect()
	r.wait(t, api.SignalLeave)

	select {
	case <-notified:
		t.Errorf("a local disconnect shouldn't be reported")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestConnectUnreachable(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OnDisconnect(func() { t.Errorf("unexpected notification") })

	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	if err := engine.Connect(addr, "secret"); err == nil {
		t.Errorf("expected an error")
	}
	if err := engine.Connect("", "secret"); !errors.Is(err, ErrNoCredential) {
		t.Errorf("expected ErrNoCredential, got %v", err)
	}
}

func TestSignalURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "ws://localhost:7880", want: "ws://localhost:7880/rtc?access_token=tok"},
		{in: "wss://media.example.com", want: "wss://media.example.com/rtc?access_token=tok"},
		{in: "https://media.example.com/lk/", want: "wss://media.example.com/lk/rtc?access_token=tok"},
		{in: "http://127.0.0.1:7880", want: "ws://127.0.0.1:7880/rtc?access_token=tok"},
		{in: "ftp://x", err: true},
	}
	for _, test := range tests {
		addr, err := signalURL(test.in, "tok")
		if test.err {
			if err == nil {
				t.Errorf("%v: expected an error", test.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: %v", test.in, err)
			continue
		}
		if addr.String() != test.want {
			t.Errorf("%v: got %v, want %v", test.in, addr, test.want)
		}
	}
}

type brokenFactory struct{}

func (brokenFactory) NewPeer() (*pion.PeerConnection, error) { return nil, errors.New("no peers") }

// A failed Connect must not keep the signaling socket open.
func TestConnectPeerError(t *testing.T) {
	gone := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			gone <- err
			return
		}
		defer func() { _ = sock.Close() }()
		_, _, err = sock.ReadMessage()
		gone <- err
	}))
	defer server.Close()

	engine := New(brokenFactory{}, logger.NewWriter(io.Discard))
	engine.OnDisconnect(func() { t.Errorf("unexpected notification") })

	if err := engine.Connect(server.URL, "secret"); err == nil {
		t.Fatalf("expected an error")
	}
	select {
	case err := <-gone:
		if err == nil {
			t.Errorf("expected the signaling socket to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("the signaling socket is still open")
	}
}
