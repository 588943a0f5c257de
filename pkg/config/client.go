package config

import (
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
)

// ClientConfig is everything the user-facing client needs.
type ClientConfig struct {
	Client Client
	Webrtc Webrtc
}

type Client struct {
	Debug  bool
	Broker struct {
		// Address is the base URL of the session broker.
		Address string
		Timeout time.Duration
		// HealthCheck makes the client probe the broker before joining.
		HealthCheck bool
	}
	// Participant holds the values a person would type into the join form.
	Participant struct {
		Name string
		Room string
	}
	Monitoring Monitoring
}

const DefaultBrokerTimeout = 10 * time.Second

// allows custom config path
var clientConfigPath string

func NewClientConfig() (conf ClientConfig, paths []string, err error) {
	if paths, err = LoadConfig(&conf, clientConfigPath); err != nil {
		return conf, paths, fmt.Errorf("config: %w", err)
	}
	conf.Client.normalize()
	return conf, paths, nil
}

// ParseFlags applies the command line over the loaded config.
// With a custom config path the file is loaded again, custom is true then
// and err is the result of that load.
func (c *ClientConfig) ParseFlags() (custom bool, err error) {
	fs := flag.CommandLine
	fs.BoolVar(&c.Client.Debug, "debug", c.Client.Debug, "Verbose logging")
	fs.StringVar(&c.Client.Broker.Address, "broker", c.Client.Broker.Address, "Session broker base URL")
	fs.DurationVar(&c.Client.Broker.Timeout, "timeout", c.Client.Broker.Timeout, "Session broker request timeout")
	fs.StringVarP(&c.Client.Participant.Name, "name", "n", c.Client.Participant.Name, "Your display name")
	fs.StringVarP(&c.Client.Participant.Room, "room", "r", c.Client.Participant.Room, "Room name (empty for auto-generated)")
	c.Client.Monitoring.WithFlags(fs)
	fs.StringVarP(&clientConfigPath, "conf", "c", clientConfigPath, "Set custom configuration file path")
	flag.Parse()
	// a custom file is read after the flags, so they have to be applied once more
	if clientConfigPath != "" {
		var fresh ClientConfig
		if _, err = LoadConfig(&fresh, clientConfigPath); err != nil {
			return true, fmt.Errorf("config %v: %w", clientConfigPath, err)
		}
		*c = fresh
		flag.Parse()
	}
	c.Client.normalize()
	return clientConfigPath != "", nil
}

func (c *Client) normalize() {
	if c.Broker.Timeout <= 0 {
		c.Broker.Timeout = DefaultBrokerTimeout
	}
}
