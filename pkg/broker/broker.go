// Package broker is a local session broker that issues media room access tokens.
package broker

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/docvoice/roomlink/pkg/api"
	"github.com/docvoice/roomlink/pkg/config"
	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/docvoice/roomlink/pkg/network/httpx"
	"github.com/goccy/go-json"
)

const (
	ServiceName = "roomlink session broker"

	maxBodySize = 16 * 1024
)

var (
	ErrNoParticipant = errors.New("participant_name is required")
	ErrNoMediaUrl    = errors.New("media server url is not set")
)

type Broker struct {
	conf   config.Broker
	minter *Minter
	server *httpx.Server
	log    *logger.Logger
}

// New creates the broker with its HTTP server.
// Missing media server settings are reported but don't stop it.
func New(conf config.Broker, log *logger.Logger) (*Broker, error) {
	b := &Broker{
		conf:   conf,
		minter: NewMinter(conf.Media.ApiKey, conf.Media.ApiSecret, conf.TokenTTL),
		log:    log,
	}
	log.Info().Msgf("Media server: %v", conf.Media.Url)
	if missing := conf.MissingMedia(); len(missing) > 0 {
		log.Warn().Msgf("Missing media server settings: %v, tokens won't be issued", strings.Join(missing, ", "))
	}

	server, err := httpx.NewServer(
		conf.Server.GetAddr(),
		func(*httpx.Server) httpx.Handler { return b.Handler() },
		httpx.WithServerConfig(conf.Server),
		httpx.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	b.server = server
	return b, nil
}

// Handler returns the HTTP routes of the broker.
func (b *Broker) Handler() http.Handler {
	h := httpx.NewServeMux("")
	h.HandleFunc("/", b.root).
		HandleFunc(api.HealthPath, b.health).
		HandleFunc(api.CreateRoomAndTokenPath, b.issue("Failed to create room and token")).
		HandleFunc(api.GetTokenPath, b.issue("Failed to generate token"))
	return b.cors(h)
}

func (b *Broker) Run() { b.server.Run() }
func (b *Broker) Stop() error { return b.server.Stop() }

// Addr is the address the broker listens on.
func (b *Broker) Addr() string { return b.server.Addr }

func (b *Broker) String() string { return fmt.Sprintf("broker::%v", b.server) }

func (b *Broker) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	b.write(w, http.StatusOK, api.MessageResponse{Message: ServiceName + " is running"})
}

func (b *Broker) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		b.reject(w, http.StatusMethodNotAllowed, "method", "Method Not Allowed")
		return
	}
	b.write(w, http.StatusOK, api.HealthResponse{Status: api.HealthyStatus, Service: ServiceName})
}

// issue handles token requests, failures are described with the prefix.
func (b *Broker) issue(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			b.reject(w, http.StatusMethodNotAllowed, "method", "Method Not Allowed")
			return
		}
		var rq api.CredentialRequest
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err == nil {
			err = json.Unmarshal(body, &rq)
		}
		if err != nil {
			b.reject(w, http.StatusUnprocessableEntity, "body", "Invalid request body")
			return
		}
		identity := strings.TrimSpace(rq.ParticipantName)
		if identity == "" {
			b.reject(w, http.StatusUnprocessableEntity, "participant", ErrNoParticipant.Error())
			return
		}

		resp, err := b.credential(identity, rq.RoomName)
		if err != nil {
			b.log.Error().Err(err).Str("participant", identity).Msg(prefix)
			b.reject(w, http.StatusInternalServerError, "mint", fmt.Sprintf("%v: %v", prefix, err))
			return
		}
		tokensTotal.WithLabelValues(strings.TrimPrefix(r.URL.Path, "/")).Inc()
		b.log.Info().Str("room", resp.RoomName).Msgf("Issued a token for %v", identity)
		b.write(w, http.StatusOK, resp)
	}
}

func (b *Broker) credential(identity, room string) (api.CredentialResponse, error) {
	if b.conf.Media.Url == "" {
		return api.CredentialResponse{}, ErrNoMediaUrl
	}
	name, err := RoomName(room, b.conf.RoomPrefix)
	if err != nil {
		return api.CredentialResponse{}, err
	}
	token, err := b.minter.Mint(identity, name)
	if err != nil {
		return api.CredentialResponse{}, err
	}
	return api.CredentialResponse{Token: token, RoomName: name, WsUrl: b.conf.Media.Url}, nil
}

func (b *Broker) reject(w http.ResponseWriter, code int, reason, detail string) {
	rejectedTotal.WithLabelValues(reason).Inc()
	b.write(w, code, api.NewErrorResponse(detail))
}

func (b *Broker) write(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.log.Error().Err(err).Msg("response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// cors allows browser clients from the configured origins.
func (b *Broker) cors(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(b.conf.Cors.Origins))
	for _, o := range b.conf.Cors.Origins {
		allowed[o] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowed[origin]; ok && origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
					h.Set("Access-Control-Allow-Headers", rh)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
