// Package webrtc builds pion peer connections from the config.
package webrtc

import (
	"fmt"

	"github.com/docvoice/roomlink/pkg/config"
	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
)

// Peers makes receive-side peer connections that share one pion API.
type Peers struct {
	api *webrtc.API
	ice []webrtc.ICEServer
}

func NewPeers(conf config.Webrtc, log *logger.Logger) (*Peers, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	media := &webrtc.MediaEngine{}
	if err := media.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("codecs: %w", err)
	}
	registry := &interceptor.Registry{}
	if !conf.DisableDefaultInterceptors {
		if err := webrtc.RegisterDefaultInterceptors(media, registry); err != nil {
			return nil, fmt.Errorf("interceptors: %w", err)
		}
	}
	settings, err := settingEngine(conf, log)
	if err != nil {
		return nil, err
	}
	return &Peers{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(media),
			webrtc.WithInterceptorRegistry(registry),
			webrtc.WithSettingEngine(settings),
		),
		ice: iceServers(conf.IceServers),
	}, nil
}

func (p *Peers) NewPeer() (*webrtc.PeerConnection, error) {
	return p.api.NewPeerConnection(webrtc.Configuration{ICEServers: p.ice})
}

func settingEngine(conf config.Webrtc, log *logger.Logger) (webrtc.SettingEngine, error) {
	s := webrtc.SettingEngine{LoggerFactory: logger.NewPionLogger(log, conf.LogLevel)}
	if conf.HasPortRange() {
		if err := s.SetEphemeralUDPPortRange(conf.IcePorts.Min, conf.IcePorts.Max); err != nil {
			return s, fmt.Errorf("ice ports: %w", err)
		}
	}
	if conf.HasIceIpMap() {
		s.SetNAT1To1IPs([]string{conf.IceIpMap}, webrtc.ICECandidateTypeHost)
		log.Info().Msgf("Local ICE candidates are mapped to %v", conf.IceIpMap)
	}
	return s, nil
}

func iceServers(servers []config.IceServer) []webrtc.ICEServer {
	ice := make([]webrtc.ICEServer, 0, len(servers))
	for _, server := range servers {
		ice = append(ice, webrtc.ICEServer{
			URLs:       []string{server.Urls},
			Username:   server.Username,
			Credential: server.Credential,
		})
	}
	return ice
}
