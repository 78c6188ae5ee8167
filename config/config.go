// File: config/config.go
// Package config loads the rpc engine's typed configuration (§6.3) out
// of the loosely-typed option map a process-wide configuration loader
// supplies. The loader itself is an external collaborator (out of
// scope per spec.md §1); this package only consumes its output.
// Author: momentics <momentics@gmail.com>
//
// Decoding follows moby-moby's use of go-viper/mapstructure/v2 to turn
// free-form option maps into typed config structs, generalized here to
// control.ConfigStore's snapshot map (see control/config.go: Decode).

package config

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// WS holds defaults applied to on-demand outbound websocket channels,
// overridable per-destination via URI fragment key/values (§4.3, §6.2).
type WS struct {
	CAFile               string        `mapstructure:"ca_file"`
	ClientCertFile       string        `mapstructure:"client_cert_file"`
	ServerName           string        `mapstructure:"server_name"`
	ReconnectIntervalMin time.Duration `mapstructure:"reconnect_interval_min"`
	ReconnectIntervalMax time.Duration `mapstructure:"reconnect_interval_max"`
	IdleCloseTimeout     time.Duration `mapstructure:"idle_close_timeout"`
}

// Config mirrors the recognized options of §6.3.
type Config struct {
	Enable                            bool          `mapstructure:"enable"`
	MaxQueueLength                    int           `mapstructure:"max_queue_length"`
	DefaultOutChannelIdleCloseTimeout time.Duration `mapstructure:"default_out_channel_idle_close_timeout"`
	AuthDomain                        string        `mapstructure:"auth_domain"`
	AuthFile                          string        `mapstructure:"auth_file"`
	WS                                WS            `mapstructure:"ws"`
}

// Default returns the engine's out-of-the-box configuration.
func Default() *Config {
	return &Config{
		Enable:                            true,
		MaxQueueLength:                    16,
		DefaultOutChannelIdleCloseTimeout: 5 * time.Minute,
		WS: WS{
			ReconnectIntervalMin: time.Second,
			ReconnectIntervalMax: 30 * time.Second,
			IdleCloseTimeout:     5 * time.Minute,
		},
	}
}

// Load decodes raw (as produced by any option loader: YAML, flags,
// env, control.ConfigStore.GetSnapshot) onto a copy of Default().
// Unrecognized keys are ignored; duration fields accept either a
// time.Duration-compatible number or a parseable duration string
// ("30s", "5m").
func Load(raw map[string]any) (*Config, error) {
	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return cfg, nil
}
