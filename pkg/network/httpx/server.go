package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/docvoice/roomlink/pkg/logger"
	"golang.org/x/crypto/acme/autocert"
)

const stopWait = 5 * time.Second

type (
	Handler        = http.Handler
	HandlerFunc    = http.HandlerFunc
	ResponseWriter = http.ResponseWriter
	Request        = http.Request
)

// Mux is a ServeMux that puts a prefix before every route.
type Mux struct {
	*http.ServeMux
	prefix string
}

func NewServeMux(prefix string) *Mux { return &Mux{ServeMux: http.NewServeMux(), prefix: prefix} }

func (m *Mux) Handle(pattern string, handler Handler) *Mux {
	m.ServeMux.Handle(m.prefix+pattern, handler)
	return m
}

func (m *Mux) HandleFunc(pattern string, handler func(ResponseWriter, *Request)) *Mux {
	m.ServeMux.HandleFunc(m.prefix+pattern, handler)
	return m
}

// Server is an HTTP(S) server that owns its listener from the start,
// so the actual address is known before Run.
type Server struct {
	http.Server

	opts     Options
	certs    *autocert.Manager
	listener *Listener
	redirect *http.Server
	log      *logger.Logger
}

func NewServer(address string, handler func(*Server) Handler, options ...Option) (*Server, error) {
	opts := Options{
		HttpsRedirect: true,
		IdleTimeout:   120 * time.Second,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
	}
	opts.override(options...)
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	s := &Server{opts: opts, log: opts.Logger}
	s.IdleTimeout = opts.IdleTimeout
	s.ReadTimeout = opts.ReadTimeout
	s.WriteTimeout = opts.WriteTimeout

	if opts.Https && opts.IsAutoHttpsCert() {
		if err := ensureDir(opts.HttpsCertCache); err != nil {
			return nil, fmt.Errorf("cert cache: %w", err)
		}
		s.certs = certManager(opts.HttpsDomain, opts.HttpsCertCache)
		s.TLSConfig = s.certs.TLSConfig()
	}

	if address == "" {
		address = ":http"
		if opts.Https {
			address = ":https"
		}
		s.log.Warn().Msgf("No server address, using %v", address)
	}
	ls, err := NewListener(address, opts.PortRoll)
	if err != nil {
		return nil, err
	}
	s.listener = ls
	s.Addr = publicAddress(address, ls.GetPort())
	s.Handler = handler(s)
	s.log.Info().Msgf("httpx %v (%v)", s.Addr, address)
	return s, nil
}

// Run serves in the background.
func (s *Server) Run() {
	if s.opts.Https && s.opts.HttpsRedirect {
		s.redirect = s.redirectServer()
		go func() {
			if err := s.redirect.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				s.log.Error().Err(err).Msg("https redirect server")
			}
		}()
	}
	go func() {
		s.log.Debug().Msgf("Starting %v", s)
		var err error
		if s.opts.Https {
			err = s.ServeTLS(*s.listener, s.opts.HttpsCert, s.opts.HttpsKey)
		} else {
			err = s.Serve(*s.listener)
		}
		if errors.Is(err, http.ErrServerClosed) {
			s.log.Debug().Msgf("%v is closed", s)
			return
		}
		s.log.Error().Err(err).Msgf("%v has failed", s)
	}()
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopWait)
	defer cancel()
	if s.redirect != nil {
		_ = s.redirect.Shutdown(ctx)
	}
	err := s.Shutdown(ctx)
	// the listener is idle when the server never ran
	_ = s.listener.Close()
	return err
}

// Port returns the actual port of the server socket.
func (s *Server) Port() int { return s.listener.GetPort() }

func (s *Server) scheme() string {
	if s.opts.Https {
		return "https"
	}
	return "http"
}

func (s *Server) String() string { return s.scheme() + "://" + s.Addr }

// redirectServer moves plain HTTP clients to HTTPS and answers ACME challenges.
func (s *Server) redirectServer() *http.Server {
	host := s.Addr
	if s.opts.HttpsDomain != "" {
		host = publicAddress(s.opts.HttpsDomain, s.Port())
	}
	var h Handler = HandlerFunc(func(w ResponseWriter, r *Request) {
		to := url.URL{Scheme: "https", Host: host, Path: r.URL.Path, RawQuery: r.URL.RawQuery}
		s.log.Debug().Str("from", r.Host+r.URL.String()).Str("to", to.String()).Msg("Redirect")
		http.Redirect(w, r, to.String(), http.StatusFound)
	})
	if s.certs != nil {
		h = s.certs.HTTPHandler(h)
	}
	s.log.Info().Msgf("HTTPS redirect from %v to %v", s.opts.HttpsRedirectAddress, host)
	return &http.Server{Addr: s.opts.HttpsRedirectAddress, Handler: h, ReadHeaderTimeout: s.ReadTimeout}
}
