// Package websocket wraps gorilla connections into a pair of read/write pumps.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

const (
	maxMessageSize = 64 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second
	dialWait       = 10 * time.Second
)

var ErrClosed = errors.New("websocket is closed")

// WS is a signaling socket.
// Messages go out through a queue served by the writer pump, and
// come in through the reader pump into OnMessage.
type WS struct {
	id   xid.ID
	sock *websocket.Conn
	send chan []byte

	OnMessage MessageHandler

	mu      sync.Mutex
	started bool
	once    sync.Once
	closed  chan struct{}

	pumps sync.WaitGroup
	Done  chan struct{}

	log *logger.Logger
}

type MessageHandler func(message []byte, err error)

// Dial connects to a signaling server.
func Dial(ctx context.Context, address url.URL, log *logger.Logger) (*WS, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialWait, Proxy: http.ProxyFromEnvironment}
	sock, resp, err := dialer.DialContext(ctx, address.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return wrap(sock, log), nil
}

func wrap(sock *websocket.Conn, log *logger.Logger) *WS {
	if log == nil {
		log = logger.Default()
	}
	id := xid.New()
	sock.SetReadLimit(maxMessageSize)
	return &WS{
		id:     id,
		sock:   sock,
		send:   make(chan []byte, 16),
		closed: make(chan struct{}),
		Done:   make(chan struct{}),
		log:    log.Extend(log.With().Str(logger.ClientField, id.String())),
	}
}

// Listen starts the pumps. The Done channel is closed after both of them exit.
// A closed socket won't start.
func (ws *WS) Listen() chan struct{} {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.started {
		return ws.Done
	}
	ws.started = true
	select {
	case <-ws.closed:
		_ = ws.sock.Close()
		close(ws.Done)
		return ws.Done
	default:
	}
	ws.pumps.Add(2)
	go ws.writer()
	go ws.reader()
	go func() {
		ws.pumps.Wait()
		_ = ws.sock.Close()
		close(ws.Done)
	}()
	return ws.Done
}

// reader pumps messages from the socket to the OnMessage callback.
func (ws *WS) reader() {
	defer func() {
		ws.pumps.Done()
		ws.stop()
		ws.log.Debug().Msg("[ws] reader closed")
	}()
	_ = ws.sock.SetReadDeadline(time.Now().Add(pongTime))
	ws.sock.SetPongHandler(func(string) error { return ws.sock.SetReadDeadline(time.Now().Add(pongTime)) })
	for {
		_, message, err := ws.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.log.Warn().Err(err).Msg("[ws] read")
			}
			return
		}
		if ws.OnMessage != nil {
			ws.OnMessage(message, nil)
		}
	}
}

// writer is the only one who writes into the socket.
func (ws *WS) writer() {
	ping := time.NewTicker(pingTime)
	defer func() {
		ping.Stop()
		ws.pumps.Done()
		ws.log.Debug().Msg("[ws] writer closed")
	}()
	for {
		select {
		case message := <-ws.send:
			if err := ws.write(websocket.TextMessage, message); err != nil {
				ws.log.Warn().Err(err).Msg("[ws] write")
				ws.stop()
				return
			}
		case <-ping.C:
			if err := ws.write(websocket.PingMessage, nil); err != nil {
				ws.stop()
				return
			}
		case <-ws.closed:
			ws.flush()
			_ = ws.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			// unblocks the reader
			_ = ws.sock.Close()
			return
		}
	}
}

func (ws *WS) write(kind int, data []byte) error {
	if err := ws.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ws.sock.WriteMessage(kind, data)
}

// flush writes what's left in the queue.
func (ws *WS) flush() {
	for {
		select {
		case message := <-ws.send:
			if err := ws.write(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Write queues a message for sending.
func (ws *WS) Write(data []byte) error {
	select {
	case <-ws.closed:
		return ErrClosed
	default:
	}
	select {
	case ws.send <- data:
		return nil
	case <-ws.closed:
		return ErrClosed
	}
}

// Close sends the close frame and shuts the pumps down.
// A socket that was never listened to is closed right away.
func (ws *WS) Close() {
	ws.stop()
	ws.mu.Lock()
	idle := !ws.started
	ws.mu.Unlock()
	if idle {
		_ = ws.sock.Close()
	}
}

func (ws *WS) stop() { ws.once.Do(func() { close(ws.closed) }) }

func (ws *WS) Id() xid.ID { return ws.id }
