package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/docvoice/roomlink/pkg/credential"
	"github.com/docvoice/roomlink/pkg/logger"
)

// Requester fetches room credentials from the session broker.
type Requester interface {
	RequestCredential(ctx context.Context, identity, label string) (credential.Credential, error)
}

// Conference is the media engine that runs a live session.
// The engine reports the end of a session with Controller.OnExternalDisconnect.
type Conference interface {
	Connect(transportURL, accessToken string) error
	Disconnect()
}

var (
	ErrBusy      = errors.New("a join request is already in progress")
	ErrConnected = errors.New("already connected, leave first")
)

// Controller is the only owner of the session State.
type Controller struct {
	broker Requester
	conf   Conference
	log    *logger.Logger

	mu       sync.Mutex
	state    State
	live     Attempt // the attempt that produced the current connection
	cancel   context.CancelFunc
	watchers []func(prev, next State)
}

// NewController creates a controller in the Idle state.
// The conf param may be nil when nobody needs the media.
func NewController(broker Requester, conf Conference, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Default()
	}
	return &Controller{broker: broker, conf: conf, log: log, state: Idle{}}
}

// OnChange registers a state change callback.
// Callbacks run in the order of transitions while the controller is locked,
// so they must not call the controller back.
func (c *Controller) OnChange(fn func(prev, next State)) {
	c.mu.Lock()
	c.watchers = append(c.watchers, fn)
	c.mu.Unlock()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Credential returns the credential of the connected session.
func (c *Controller) Credential() (credential.Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.state.(Connected); ok {
		return s.Credential, true
	}
	return credential.Credential{}, false
}

// Join requests a credential for the room with the label and connects to it.
// An empty label lets the broker name the room.
//
// It blocks until the broker answers and returns the resulting state. Failures
// of the request are not errors, they end up in the Failed state. The returned
// error is only set when the call was ignored: ErrBusy while another
// request is in flight, ErrConnected while a session is live.
func (c *Controller) Join(ctx context.Context, identity, label string) (State, error) {
	attempt := NewAttempt()

	c.mu.Lock()
	switch c.state.(type) {
	case Requesting:
		s := c.state
		c.mu.Unlock()
		c.log.Warn().Msg("Join is ignored, the previous one is still in progress")
		return s, ErrBusy
	case Connected:
		s := c.state
		c.mu.Unlock()
		c.log.Warn().Msg("Join is ignored, already connected")
		return s, ErrConnected
	}
	s := c.apply(JoinRequested{Attempt: attempt, Identity: identity, Label: label})
	if _, ok := s.(Requesting); !ok {
		c.mu.Unlock()
		joinsTotal.WithLabelValues(credential.KindValidation.String()).Inc()
		return s, nil
	}
	rctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	log := c.log.Extend(c.log.With().Str("attempt", attempt.String()))
	log.Info().Str("room", label).Msgf("Requesting a credential for %v", identity)

	start := time.Now()
	cred, err := c.broker.RequestCredential(rctx, identity, label)
	requestSeconds.Observe(time.Since(start).Seconds())
	cancel()

	var ev Event = BrokerResolved{Attempt: attempt, Credential: cred}
	if err != nil {
		ev = BrokerFailed{Attempt: attempt, Err: err}
	}

	c.mu.Lock()
	if !isPending(c.state, attempt) {
		s = c.state
		c.mu.Unlock()
		log.Info().Msgf("Discarded a late broker response, the state is %v", s)
		joinsTotal.WithLabelValues("abandoned").Inc()
		return s, nil
	}
	c.cancel = nil
	s = c.apply(ev)
	connected := s.Phase() == PhaseConnected
	if connected {
		c.live = attempt
	}
	c.mu.Unlock()

	if !connected {
		f, _ := s.(Failed)
		log.Warn().Err(err).Str("kind", f.Kind.String()).Msg("Join has failed")
		joinsTotal.WithLabelValues(f.Kind.String()).Inc()
		return s, nil
	}
	joinsTotal.WithLabelValues("ok").Inc()
	c.connect(attempt, cred, log)
	return c.State(), nil
}

// connect hands the credential over to the conference engine.
func (c *Controller) connect(attempt Attempt, cred credential.Credential, log *logger.Logger) {
	if c.conf == nil {
		return
	}
	err := c.conf.Connect(cred.TransportURL, cred.AccessToken)

	c.mu.Lock()
	current := c.live == attempt
	c.mu.Unlock()

	switch {
	case err != nil:
		log.Error().Err(err).Msgf("Couldn't connect to %v", cred.SessionName)
		if current {
			c.OnExternalDisconnect()
		}
	case !current:
		// left while connecting
		c.conf.Disconnect()
	default:
		log.Info().Msgf("Connected to %v", cred.SessionName)
	}
}

// Leave ends the session and forgets its credential.
// It does nothing when Idle. While a join is in flight, it makes
// the controller Idle right away and the late broker answer is dropped.
func (c *Controller) Leave() { c.leave(LeaveRequested{}) }

// OnExternalDisconnect is called by the conference engine when the session
// is over for any reason. It has the same effect as Leave.
func (c *Controller) OnExternalDisconnect() { c.leave(EngineDisconnected{}) }

func (c *Controller) leave(e Event) {
	c.mu.Lock()
	if c.state.Phase() == PhaseIdle {
		c.mu.Unlock()
		return
	}
	c.apply(e)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	wasLive := c.live != Attempt{}
	c.live = Attempt{}
	c.mu.Unlock()

	if _, byUser := e.(LeaveRequested); byUser && wasLive && c.conf != nil {
		c.conf.Disconnect()
	}
}

// apply moves the controller into the next state, must be called under the lock.
func (c *Controller) apply(e Event) State {
	prev := c.state
	next := Reduce(prev, e)
	if next == prev {
		return next
	}
	c.state = next
	phaseGauge.Set(float64(next.Phase()))
	c.log.Info().Msgf("%v → %v", prev, next)
	for _, fn := range c.watchers {
		fn(prev, next)
	}
	return next
}
