package config

import (
	"fmt"
	"strings"
)

type Webrtc struct {
	DisableDefaultInterceptors bool
	IceServers                 []IceServer
	IcePorts                   IcePorts
	IceIpMap                   string
	LogLevel                   int
}

// IcePorts is an inclusive UDP port range for local ICE candidates.
type IcePorts struct {
	Min uint16
	Max uint16
}

type IceServer struct {
	Urls       string `json:"urls,omitempty"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

func (w *Webrtc) HasPortRange() bool { return w.IcePorts.Min > 0 && w.IcePorts.Max > 0 }
func (w *Webrtc) HasIceIpMap() bool  { return w.IceIpMap != "" }

// Validate checks that TURN servers come with credentials.
func (w *Webrtc) Validate() error {
	for _, ice := range w.IceServers {
		if strings.HasPrefix(ice.Urls, "turn:") || strings.HasPrefix(ice.Urls, "turns:") {
			if ice.Username == "" || ice.Credential == "" {
				return fmt.Errorf("TURN or TURNS servers should have both username and credential: %+v", ice)
			}
		}
	}
	if w.HasPortRange() && w.IcePorts.Min > w.IcePorts.Max {
		return fmt.Errorf("wrong ICE port range [%v, %v]", w.IcePorts.Min, w.IcePorts.Max)
	}
	return nil
}
