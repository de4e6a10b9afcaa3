// Package config loads the gateway's process configuration from the
// environment, following the same GetEnvStr/Int/Bool helper shape used
// across the fleet's services, with an optional JSON overlay file decoded
// through mapstructure.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ErrMissingEnvVar is returned when a required environment variable is unset.
var ErrMissingEnvVar = errors.New("missing required environment variable")

// ErrInvalidPort is returned when a configured port fails to parse as uint16.
var ErrInvalidPort = errors.New("invalid port")

// Config is the gateway's full runtime configuration.
type Config struct {
	JWTSecret string

	Host             string
	WSPort           uint16
	EnableWebTransport bool
	WTPort           uint16

	NATSURL string

	TLSCertPath string
	TLSKeyPath  string

	LogLevel  string
	LogFormat string
	LogFile   string

	ShutdownTimeout time.Duration
	FanInBuffer     int
}

// overlay mirrors the subset of Config that may be supplied via a JSON file,
// decoded with mapstructure the way runn_cfg's loader does for its own
// service configuration.
type overlay struct {
	Host               *string `mapstructure:"host"`
	WSPort             *int    `mapstructure:"ws_port"`
	EnableWebTransport *bool   `mapstructure:"enable_webtransport"`
	WTPort             *int    `mapstructure:"wt_port"`
	NATSURL            *string `mapstructure:"nats_url"`
	LogLevel           *string `mapstructure:"log_level"`
	LogFormat          *string `mapstructure:"log_format"`
}

// Load builds a Config from the environment, optionally overlaid by a JSON
// file named by the path argument (ignored when empty).
func Load(overlayPath string) (Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, fmt.Errorf("%w: JWT_SECRET", ErrMissingEnvVar)
	}

	wsPort, err := parsePort("GATEWAY_WS_PORT", 4434)
	if err != nil {
		return Config{}, err
	}
	wtPort, err := parsePort("GATEWAY_WT_PORT", 4435)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		JWTSecret:          secret,
		Host:               getEnvStr("GATEWAY_HOST", "0.0.0.0"),
		WSPort:             wsPort,
		EnableWebTransport: getEnvBool("GATEWAY_ENABLE_WEBTRANSPORT", false),
		WTPort:             wtPort,
		NATSURL:            getEnvStr("NATS_URL", "localhost:4222"),
		TLSCertPath:        getEnvStr("TLS_CERT_PATH", ""),
		TLSKeyPath:         getEnvStr("TLS_KEY_PATH", ""),
		LogLevel:           getEnvStr("GATEWAY_LOG_LEVEL", "info"),
		LogFormat:          getEnvStr("GATEWAY_LOG_FORMAT", ""),
		LogFile:            getEnvStr("GATEWAY_LOG_FILE", ""),
		ShutdownTimeout:    time.Duration(getEnvInt("GATEWAY_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		FanInBuffer:        getEnvInt("GATEWAY_FANIN_BUFFER", 256),
	}

	if overlayPath != "" {
		if err := applyOverlay(&cfg, overlayPath); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func applyOverlay(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config overlay: %w", err)
	}

	var anyMap map[string]any
	if err := json.Unmarshal(raw, &anyMap); err != nil {
		return fmt.Errorf("decode config overlay: %w", err)
	}

	var ov overlay
	if err := mapstructure.Decode(anyMap, &ov); err != nil {
		return fmt.Errorf("apply config overlay: %w", err)
	}

	if ov.Host != nil {
		cfg.Host = *ov.Host
	}
	if ov.WSPort != nil {
		cfg.WSPort = uint16(*ov.WSPort)
	}
	if ov.EnableWebTransport != nil {
		cfg.EnableWebTransport = *ov.EnableWebTransport
	}
	if ov.WTPort != nil {
		cfg.WTPort = uint16(*ov.WTPort)
	}
	if ov.NATSURL != nil {
		cfg.NATSURL = *ov.NATSURL
	}
	if ov.LogLevel != nil {
		cfg.LogLevel = *ov.LogLevel
	}
	if ov.LogFormat != nil {
		cfg.LogFormat = *ov.LogFormat
	}
	return nil
}

func parsePort(key string, fallback int) (uint16, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return uint16(fallback), nil
	}
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidPort, key, raw)
	}
	return uint16(n), nil
}
