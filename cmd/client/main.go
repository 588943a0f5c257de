package main

import (
	"context"
	goflag "flag"
	"fmt"
	"net"
	"net/http"
	goos "os"
	"time"

	"github.com/docvoice/roomlink/pkg/conference"
	"github.com/docvoice/roomlink/pkg/config"
	"github.com/docvoice/roomlink/pkg/credential"
	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/docvoice/roomlink/pkg/monitoring"
	"github.com/docvoice/roomlink/pkg/os"
	"github.com/docvoice/roomlink/pkg/service"
	"github.com/docvoice/roomlink/pkg/session"
	"github.com/docvoice/roomlink/pkg/webrtc"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() { goos.Exit(run()) }

func run() int {
	conf, _, err := config.NewClientConfig()
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	if custom, cerr := conf.ParseFlags(); custom {
		err = cerr
	}

	log := logger.NewConsole(conf.Client.Debug, "cl", false)
	if err != nil {
		log.Error().Err(err).Msg("no config")
		return 2
	}

	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	broker, err := credential.New(conf.Client.Broker.Address,
		credential.WithHTTPClient(brokerHTTP(conf.Client.Broker.Timeout)),
		credential.WithTimeout(conf.Client.Broker.Timeout),
		credential.WithLogger(log.Tagged("cred")),
	)
	if err != nil {
		log.Error().Err(err).Msg("bad broker address")
		return 2
	}
	if conf.Client.Broker.HealthCheck {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err = broker.Health(ctx); err != nil {
			log.Warn().Err(err).Msgf("The session broker at %v is not healthy", broker)
		}
		cancel()
	}

	factory, err := webrtc.NewPeers(conf.Webrtc, log)
	if err != nil {
		log.Error().Err(err).Msg("webrtc config")
		return 2
	}
	engine := conference.New(factory, log)
	ctrl := session.NewController(broker, engine, log.Tagged("session"))
	engine.OnDisconnect(ctrl.OnExternalDisconnect)

	ended := make(chan struct{}, 1)
	ctrl.OnChange(func(prev, next session.State) {
		fmt.Printf("%v → %v\n", prev, next)
		if prev.Phase() == session.PhaseConnected && next.Phase() == session.PhaseIdle {
			select {
			case ended <- struct{}{}:
			default:
			}
		}
	})

	services := service.Group{}
	if conf.Client.Monitoring.IsEnabled() {
		services.Add(monitoring.New(conf.Client.Monitoring, log))
	}
	services.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := services.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("service shutdown errors")
		}
	}()

	term := os.Terminated()
	joined := make(chan session.State, 1)
	go func() {
		s, _ := ctrl.Join(context.Background(), conf.Client.Participant.Name, conf.Client.Participant.Room)
		joined <- s
	}()

	var s session.State
	select {
	case <-term:
		ctrl.Leave()
		return 0
	case s = <-joined:
	}

	switch v := s.(type) {
	case session.Failed:
		fmt.Println(v.Message)
		return 1
	case session.Connected:
		fmt.Printf("Joined %v as %v, press Ctrl+C to leave\n", v.Credential.SessionName, conf.Client.Participant.Name)
	default:
		// the media connection has failed
		return 1
	}

	select {
	case <-term:
		ctrl.Leave()
	case <-ended:
		fmt.Println("The session is over")
	}
	return 0
}

// brokerHTTP is the HTTP client of the session broker, it goes through
// the proxy from the environment and doesn't keep idle connections.
func brokerHTTP(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			DisableKeepAlives:     true,
		},
	}
}
