package config

import (
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"
)

type Monitoring struct {
	Port             int
	URLPrefix        string
	MetricEnabled    bool `json:"metric_enabled"`
	ProfilingEnabled bool `json:"profiling_enabled"`
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

func (c *Monitoring) WithFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Port, "monitoring.port", c.Port, "Monitoring server port")
	fs.BoolVar(&c.MetricEnabled, "monitoring.metrics", c.MetricEnabled, "Expose Prometheus metrics")
}

type Server struct {
	Address string
	Https   bool
	Tls     struct {
		Address   string
		Domain    string
		HttpsKey  string
		HttpsCert string
		// CertCache keeps Let's Encrypt certificates, ~/.roomlink/certs by default
		CertCache string
	}
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (s *Server) WithFlags(fs *flag.FlagSet) {
	fs.StringVar(&s.Address, "address", s.Address, "HTTP server address (host:port)")
	fs.StringVar(&s.Tls.Address, "httpsAddress", s.Tls.Address, "HTTPS server address (host:port)")
	fs.StringVar(&s.Tls.HttpsKey, "httpsKey", s.Tls.HttpsKey, "HTTPS key")
	fs.StringVar(&s.Tls.HttpsCert, "httpsCert", s.Tls.HttpsCert, "HTTPS chain")
}

func (s *Server) GetAddr() string {
	if s.Https {
		return s.Tls.Address
	}
	return s.Address
}

// CertCacheDir is where the automatic HTTPS certificates are stored.
func (s *Server) CertCacheDir() string {
	if s.Tls.CertCache != "" {
		return s.Tls.CertCache
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".roomlink", "certs")
	}
	return filepath.Join(".roomlink", "certs")
}
