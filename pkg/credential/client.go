package credential

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docvoice/roomlink/pkg/api"
	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/goccy/go-json"
)

const maxBodySize = 1 << 20

type (
	// Client talks to the session broker.
	Client struct {
		base    *url.URL
		http    *http.Client
		timeout time.Duration
		log     *logger.Logger
	}
	Option func(c *Client)
)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithTimeout(d time.Duration) Option    { return func(c *Client) { c.timeout = d } }
func WithLogger(log *logger.Logger) Option  { return func(c *Client) { c.log = log } }

// New creates a client of the broker living at the given base URL.
func New(address string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(address, "/"))
	if err != nil {
		return nil, fmt.Errorf("broker address: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("broker address: unsupported scheme [%v]", base.Scheme)
	}
	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Default()
	}
	return c, nil
}

// RequestCredential asks the broker for a room access token.
// The identity must be already validated. An empty label lets the broker name the room.
// It makes exactly one HTTP request and returns either a complete Credential or an *Error.
func (c *Client) RequestCredential(ctx context.Context, identity, label string) (Credential, error) {
	rq := api.CredentialRequest{
		ParticipantName: strings.TrimSpace(identity),
		RoomName:        strings.TrimSpace(label),
	}
	body, err := json.Marshal(rq)
	if err != nil {
		return Credential{}, transportError(err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(api.CreateRoomAndTokenPath), bytes.NewReader(body))
	if err != nil {
		return Credential{}, transportError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("room", rq.RoomName).Msgf("→ %v", api.CreateRoomAndTokenPath)

	resp, err := c.http.Do(req)
	if err != nil {
		return Credential{}, c.doError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Credential{}, c.doError(ctx, err)
	}

	c.log.Debug().Int("status", resp.StatusCode).Msgf("← %v", api.CreateRoomAndTokenPath)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Credential{}, statusError(resp.StatusCode, data)
	}

	var out api.CredentialResponse
	if err = json.Unmarshal(data, &out); err != nil {
		return Credential{}, &Error{Kind: KindMalformed, Message: MsgMalformed, Err: err}
	}
	cred := Credential{AccessToken: out.Token, SessionName: out.RoomName, TransportURL: out.WsUrl}
	if !cred.IsValid() {
		return Credential{}, &Error{
			Kind:    KindMalformed,
			Message: MsgMalformed,
			Err:     fmt.Errorf("missing fields %v", cred.missing()),
		}
	}
	return cred, nil
}

// Health checks that the broker is up.
func (c *Client) Health(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(api.HealthPath), nil)
	if err != nil {
		return transportError(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.doError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out api.HealthResponse
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&out); err != nil {
		return transportError(fmt.Errorf("health: %w", err))
	}
	if resp.StatusCode != http.StatusOK || out.Status != api.HealthyStatus {
		return transportError(fmt.Errorf("health: status %v [%v]", resp.StatusCode, out.Status))
	}
	return nil
}

func (c *Client) String() string { return c.base.String() }

func (c *Client) endpoint(path string) string { return c.base.JoinPath(path).String() }

// doError converts a failed round trip into an *Error.
func (c *Client) doError(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return &Error{Kind: KindTimeout, Message: MsgTimeout, Err: err}
	}
	return transportError(err)
}

// statusError maps a non-2xx response. Only a string detail is shown verbatim.
func statusError(status int, body []byte) *Error {
	var er api.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if detail, ok := er.DetailText(); ok {
			return &Error{Kind: KindBroker, Message: detail, Err: fmt.Errorf("status %v", status)}
		}
	}
	return transportError(fmt.Errorf("status %v", status))
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
