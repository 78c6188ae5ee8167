// File: wschannel/factory.go
// Author: momentics <momentics@gmail.com>
//
// Factory implements channel.Factory: it builds (but does not yet
// connect) an OutboundChannel for a canonical ws/wss/http/https
// destination, applying any per-destination overrides carried in the
// URI fragment (§4.3/§6.2's ssl_ca_file, ssl_client_cert_file,
// ssl_server_name, reconnect_interval_min/max, idle_close_timeout).
// An http/https destination upgrades to the same websocket transport —
// this module speaks one wire protocol regardless of the scheme a
// destination was addressed by (§9 open question, resolved in
// DESIGN.md).

package wschannel

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/config"
)

// Factory builds outbound channels using baseCfg as the default
// transport configuration, overridden per-destination by fragment
// config.
type Factory struct {
	baseCfg config.WS
	log     *logrus.Entry
}

// NewFactory builds a Factory. log may be nil.
func NewFactory(baseCfg config.WS, log *logrus.Entry) *Factory {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Factory{baseCfg: baseCfg, log: log}
}

// Dial builds an OutboundChannel for canonicalURI. It does not block
// and does not itself open a connection — the registry calls Connect
// on the returned channel once it has bound event delivery.
func (f *Factory) Dial(canonicalURI string, fragmentConfig map[string]string) (api.Channel, error) {
	cfg := f.baseCfg
	applyFragmentOverrides(&cfg, fragmentConfig)
	wsURL := toWebSocketURL(canonicalURI)
	return newOutboundChannel(wsURL, cfg, f.log), nil
}

// toWebSocketURL rewrites an http/https destination onto its ws/wss
// equivalent: the wire protocol this module speaks is always
// websocket, regardless of the scheme a destination was addressed by.
func toWebSocketURL(uri string) string {
	switch {
	case strings.HasPrefix(uri, "https://"):
		return "wss://" + strings.TrimPrefix(uri, "https://")
	case strings.HasPrefix(uri, "http://"):
		return "ws://" + strings.TrimPrefix(uri, "http://")
	default:
		return uri
	}
}

func applyFragmentOverrides(cfg *config.WS, frag map[string]string) {
	if v, ok := frag["ssl_ca_file"]; ok {
		cfg.CAFile = v
	}
	if v, ok := frag["ssl_client_cert_file"]; ok {
		cfg.ClientCertFile = v
	}
	if v, ok := frag["ssl_server_name"]; ok {
		cfg.ServerName = v
	}
	if v, ok := frag["reconnect_interval_min"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReconnectIntervalMin = d
		}
	}
	if v, ok := frag["reconnect_interval_max"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReconnectIntervalMax = d
		}
	}
	if v, ok := frag["idle_close_timeout"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.IdleCloseTimeout = d
		}
	}
}

// buildTLSConfig returns nil, nil when cfg carries no TLS overrides at
// all — the default dialer's zero-value TLS config is used instead.
func buildTLSConfig(cfg config.WS) (*tls.Config, error) {
	if cfg.CAFile == "" && cfg.ClientCertFile == "" && cfg.ServerName == "" {
		return nil, nil
	}
	tlsCfg := &tls.Config{ServerName: cfg.ServerName}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientCertFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}
