package config

import (
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
)

// BrokerConfig is the configuration of the local session broker.
type BrokerConfig struct {
	Broker Broker
}

type Broker struct {
	Debug bool
	// Media is the conferencing server the issued tokens are valid for.
	Media struct {
		Url       string
		ApiKey    string
		ApiSecret string
	}
	RoomPrefix string
	TokenTTL   time.Duration
	Cors       struct {
		Origins []string
	}
	Server     Server
	Monitoring Monitoring
}

const (
	DefaultRoomPrefix = "rag-room-"
	DefaultTokenTTL   = 6 * time.Hour
)

// allows custom config path
var brokerConfigPath string

func NewBrokerConfig() (conf BrokerConfig, paths []string, err error) {
	if paths, err = LoadConfig(&conf, brokerConfigPath); err != nil {
		return conf, paths, fmt.Errorf("config: %w", err)
	}
	conf.Broker.normalize()
	return conf, paths, nil
}

// ParseFlags applies the command line over the loaded config.
// With a custom config path the file is loaded again, custom is true then
// and err is the result of that load.
func (c *BrokerConfig) ParseFlags() (custom bool, err error) {
	fs := flag.CommandLine
	fs.BoolVar(&c.Broker.Debug, "debug", c.Broker.Debug, "Verbose logging")
	c.Broker.Server.WithFlags(fs)
	c.Broker.Monitoring.WithFlags(fs)
	fs.StringVarP(&brokerConfigPath, "conf", "c", brokerConfigPath, "Set custom configuration file path")
	flag.Parse()
	// a custom file is read after the flags, so they have to be applied once more
	if brokerConfigPath != "" {
		var fresh BrokerConfig
		if _, err = LoadConfig(&fresh, brokerConfigPath); err != nil {
			return true, fmt.Errorf("config %v: %w", brokerConfigPath, err)
		}
		*c = fresh
		flag.Parse()
	}
	c.Broker.normalize()
	return brokerConfigPath != "", nil
}

// MissingMedia lists the media server settings that are not set.
func (b *Broker) MissingMedia() (missing []string) {
	if b.Media.ApiKey == "" {
		missing = append(missing, "ApiKey")
	}
	if b.Media.ApiSecret == "" {
		missing = append(missing, "ApiSecret")
	}
	if b.Media.Url == "" {
		missing = append(missing, "Url")
	}
	return
}

func (b *Broker) normalize() {
	if b.RoomPrefix == "" {
		b.RoomPrefix = DefaultRoomPrefix
	}
	if b.TokenTTL <= 0 {
		b.TokenTTL = DefaultTokenTTL
	}
}
