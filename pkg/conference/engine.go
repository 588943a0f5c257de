// Package conference connects to a media room with a credential from the session broker.
//
// The engine receives the audio and video of the room over a single pion
// peer connection negotiated through a websocket signaling channel at
// <transport url>/rtc?access_token=<token>.
package conference

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/docvoice/roomlink/pkg/api"
	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/docvoice/roomlink/pkg/network/websocket"
	pion "github.com/pion/webrtc/v3"
)

const connectTimeout = 10 * time.Second

var ErrNoCredential = errors.New("no transport url or access token")

// PeerFactory makes peer connections, see webrtc.Peers.
type PeerFactory interface {
	NewPeer() (*pion.PeerConnection, error)
}

type Engine struct {
	factory PeerFactory
	log     *logger.Logger

	mu           sync.Mutex
	call         *call
	onDisconnect func()
}

// call is one live connection to a room.
type call struct {
	ws  *websocket.WS
	pc  *pion.PeerConnection
	log *logger.Logger

	mu       sync.Mutex
	closed   bool
	answered bool
	pending  []pion.ICECandidateInit
}

func New(factory PeerFactory, log *logger.Logger) *Engine {
	return &Engine{factory: factory, log: log.Tagged("conf")}
}

// OnDisconnect sets the callback for sessions ended by the remote side,
// the network or the media stack. It's not called after Disconnect.
func (e *Engine) OnDisconnect(fn func()) {
	e.mu.Lock()
	e.onDisconnect = fn
	e.mu.Unlock()
}

// Connect joins the room at transportURL with the accessToken.
// A previous connection, if any, is dropped without notification.
func (e *Engine) Connect(transportURL, accessToken string) error {
	addr, err := signalURL(transportURL, accessToken)
	if err != nil {
		return err
	}
	e.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	ws, err := websocket.Dial(ctx, *addr, e.log)
	if err != nil {
		return fmt.Errorf("signaling: %w", err)
	}
	pc, err := e.factory.NewPeer()
	if err != nil {
		ws.Close()
		return fmt.Errorf("peer: %w", err)
	}

	c := &call{ws: ws, pc: pc, log: e.log.Extend(e.log.With().Str("ws", ws.Id().String()))}
	if err = e.setup(c); err != nil {
		c.close()
		return err
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		c.close()
		return fmt.Errorf("offer: %w", err)
	}
	if err = pc.SetLocalDescription(offer); err != nil {
		c.close()
		return fmt.Errorf("offer: %w", err)
	}

	e.mu.Lock()
	e.call = c
	e.mu.Unlock()

	done := ws.Listen()
	go func() {
		<-done
		e.end(c, "signaling closed")
	}()

	if err = c.send(api.SignalOffer, api.SessionDescription{Type: offer.Type.String(), Sdp: offer.SDP}); err != nil {
		e.end(c, "offer not sent")
		return fmt.Errorf("offer: %w", err)
	}
	c.log.Info().Msgf("Joining %v", addr.Host)
	return nil
}

func (e *Engine) setup(c *call) error {
	for _, kind := range []pion.RTPCodecType{pion.RTPCodecTypeAudio, pion.RTPCodecTypeVideo} {
		init := pion.RTPTransceiverInit{Direction: pion.RTPTransceiverDirectionRecvonly}
		if _, err := c.pc.AddTransceiverFromKind(kind, init); err != nil {
			return fmt.Errorf("transceiver: %w", err)
		}
	}

	c.pc.OnICECandidate(func(candidate *pion.ICECandidate) {
		if candidate == nil {
			return
		}
		ice := candidate.ToJSON()
		_ = c.send(api.SignalTrickle, api.TrickleRequest{
			Candidate:        ice.Candidate,
			SdpMid:           ice.SDPMid,
			SdpMLineIndex:    ice.SDPMLineIndex,
			UsernameFragment: ice.UsernameFragment,
		})
	})
	c.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		c.log.Debug().Msgf("Peer connection: %v", state)
		switch state {
		case pion.PeerConnectionStateConnected:
			c.log.Info().Msg("Media is connected")
		case pion.PeerConnectionStateFailed, pion.PeerConnectionStateClosed:
			e.end(c, "peer "+state.String())
		}
	})
	c.pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		c.log.Info().Msgf("New %v track [%v]", track.Kind(), track.Codec().MimeType)
		// the packets must be read to keep the interceptors working
		go func() {
			for {
				if _, _, err := track.ReadRTP(); err != nil {
					return
				}
			}
		}()
	})

	c.ws.OnMessage = func(message []byte, err error) {
		if err != nil {
			return
		}
		if err = e.handle(c, message); err != nil {
			c.log.Error().Err(err).Msg("signaling")
		}
	}
	return nil
}

func (e *Engine) handle(c *call, message []byte) error {
	packet, err := api.Decode(message)
	if err != nil {
		return err
	}
	c.log.Debug().Str(logger.DirectionField, "←").Msgf("%v", packet.T)
	switch packet.T {
	case api.SignalAnswer:
		sd := api.Unwrap[api.SessionDescription](packet.Payload)
		if sd == nil {
			return api.ErrMalformed
		}
		return c.answer(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sd.Sdp})
	case api.SignalTrickle:
		ice := api.Unwrap[api.TrickleRequest](packet.Payload)
		if ice == nil {
			return api.ErrMalformed
		}
		return c.candidate(pion.ICECandidateInit{
			Candidate:        ice.Candidate,
			SDPMid:           ice.SdpMid,
			SDPMLineIndex:    ice.SdpMLineIndex,
			UsernameFragment: ice.UsernameFragment,
		})
	case api.SignalLeave:
		reason := "remote leave"
		if rq := api.Unwrap[api.LeaveRequest](packet.Payload); rq != nil && rq.Reason != "" {
			reason += ": " + rq.Reason
		}
		e.end(c, reason)
	default:
		c.log.Warn().Msgf("Unhandled packet type %v", packet.T)
	}
	return nil
}

// Disconnect leaves the current room, if any.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	c := e.call
	e.call = nil
	e.mu.Unlock()
	if c == nil {
		return
	}
	_ = c.send(api.SignalLeave, api.LeaveRequest{Reason: "client leave"})
	c.close()
	c.log.Info().Msg("Left the room")
}

// end closes the call and notifies about it when it was the current one.
func (e *Engine) end(c *call, reason string) {
	e.mu.Lock()
	current := e.call == c
	if current {
		e.call = nil
	}
	fn := e.onDisconnect
	e.mu.Unlock()

	c.close()
	if current {
		c.log.Info().Msgf("Disconnected, %v", reason)
		if fn != nil {
			fn()
		}
	}
}

func (c *call) send(t api.PT, payload any) error {
	data, err := api.Encode(t, payload)
	if err != nil {
		return err
	}
	c.log.Debug().Str(logger.DirectionField, "→").Msgf("%v", t)
	return c.ws.Write(data)
}

func (c *call) answer(sd pion.SessionDescription) error {
	if err := c.pc.SetRemoteDescription(sd); err != nil {
		return err
	}
	c.mu.Lock()
	c.answered = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ice := range pending {
		if err := c.pc.AddICECandidate(ice); err != nil {
			return err
		}
	}
	return nil
}

// candidate adds a remote candidate or keeps it until the answer comes.
func (c *call) candidate(ice pion.ICECandidateInit) error {
	c.mu.Lock()
	if !c.answered {
		c.pending = append(c.pending, ice)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.pc.AddICECandidate(ice)
}

// close may be reentered from the peer callbacks.
func (c *call) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.ws.Close()
	if err := c.pc.Close(); err != nil {
		c.log.Warn().Err(err).Msg("peer close")
	}
}

// signalURL makes the signaling address from the transport url of a credential.
func signalURL(transportURL, accessToken string) (*url.URL, error) {
	if transportURL == "" || accessToken == "" {
		return nil, ErrNoCredential
	}
	addr, err := url.Parse(transportURL)
	if err != nil {
		return nil, fmt.Errorf("transport url: %w", err)
	}
	switch strings.ToLower(addr.Scheme) {
	case "ws", "wss":
	case "http":
		addr.Scheme = "ws"
	case "https":
		addr.Scheme = "wss"
	default:
		return nil, fmt.Errorf("transport url: unsupported scheme [%v]", addr.Scheme)
	}
	addr = addr.JoinPath("rtc")
	q := addr.Query()
	q.Set("access_token", accessToken)
	addr.RawQuery = q.Encode()
	return addr, nil
}
