package main

import (
	"context"
	goflag "flag"
	"time"

	"github.com/docvoice/roomlink/pkg/broker"
	"github.com/docvoice/roomlink/pkg/config"
	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/docvoice/roomlink/pkg/monitoring"
	"github.com/docvoice/roomlink/pkg/os"
	"github.com/docvoice/roomlink/pkg/service"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() {
	conf, paths, err := config.NewBrokerConfig()
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	if custom, cerr := conf.ParseFlags(); custom {
		err = cerr
	}

	log := logger.NewConsole(conf.Broker.Debug, "b", false)
	if err != nil {
		log.Fatal().Err(err).Msg("no config")
	}

	log.Info().Msgf("version %s", Version)
	log.Info().Msgf("conf: %v", paths)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	b, err := broker.New(conf.Broker, log)
	if err != nil {
		log.Fatal().Err(err).Msg("broker init fail")
	}
	services := service.Group{}
	services.Add(b)
	if conf.Broker.Monitoring.IsEnabled() {
		services.Add(monitoring.New(conf.Broker.Monitoring, log))
	}
	services.Start()
	log.Info().Msgf("The session broker is listening at %v", b.Addr())

	<-os.Terminated()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := services.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
