package monitoring

import (
	"fmt"
	"net/http/pprof"

	"github.com/docvoice/roomlink/pkg/config"
	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/docvoice/roomlink/pkg/network/httpx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	debugEndpoint   = "/debug/pprof"
	metricsEndpoint = "/metrics"
)

type Monitoring struct {
	conf   config.Monitoring
	server *httpx.Server
	log    *logger.Logger
}

// New creates new monitoring service.
// Nothing is served when the server couldn't be created.
func New(conf config.Monitoring, log *logger.Logger) *Monitoring {
	log = log.Tagged("mon")
	serv, err := httpx.NewServer(
		fmt.Sprintf(":%d", conf.Port),
		func(serv *httpx.Server) httpx.Handler {
			h := httpx.NewServeMux(conf.URLPrefix)
			if conf.ProfilingEnabled {
				prefix := debugEndpoint
				h.HandleFunc(prefix+"/", pprof.Index).
					HandleFunc(prefix+"/cmdline", pprof.Cmdline).
					HandleFunc(prefix+"/profile", pprof.Profile).
					HandleFunc(prefix+"/symbol", pprof.Symbol).
					HandleFunc(prefix+"/trace", pprof.Trace).
					Handle(prefix+"/allocs", pprof.Handler("allocs")).
					Handle(prefix+"/block", pprof.Handler("block")).
					Handle(prefix+"/goroutine", pprof.Handler("goroutine")).
					Handle(prefix+"/heap", pprof.Handler("heap")).
					Handle(prefix+"/mutex", pprof.Handler("mutex")).
					Handle(prefix+"/threadcreate", pprof.Handler("threadcreate"))
			}
			if conf.MetricEnabled {
				h.Handle(metricsEndpoint, promhttp.Handler())
			}
			return h
		},
		httpx.WithPortRoll(true),
		httpx.WithLogger(log),
	)
	if err != nil {
		log.Error().Err(err).Msg("couldn't start monitoring server")
	}
	return &Monitoring{conf: conf, server: serv, log: log}
}

func (m *Monitoring) Run() {
	if m.server == nil {
		return
	}
	if m.conf.ProfilingEnabled {
		m.log.Info().Msgf(">>> Starting profiler at %v%v", m.server.Addr, m.conf.URLPrefix+debugEndpoint)
	}
	if m.conf.MetricEnabled {
		m.log.Info().Msgf(">>> Starting metrics at %v%v", m.server.Addr, m.conf.URLPrefix+metricsEndpoint)
	}
	m.server.Run()
}

func (m *Monitoring) Stop() error {
	if m.server == nil {
		return nil
	}
	m.log.Info().Msg("Shutting down monitoring server")
	return m.server.Stop()
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
