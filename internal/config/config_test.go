package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"JWT_SECRET", "GATEWAY_HOST", "GATEWAY_WS_PORT", "GATEWAY_WT_PORT",
		"GATEWAY_ENABLE_WEBTRANSPORT", "NATS_URL", "TLS_CERT_PATH", "TLS_KEY_PATH",
		"GATEWAY_LOG_LEVEL", "GATEWAY_LOG_FORMAT", "GATEWAY_LOG_FILE",
		"GATEWAY_SHUTDOWN_TIMEOUT_SEC", "GATEWAY_FANIN_BUFFER",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	clearGatewayEnv(t)

	_, err := Load("")
	if !errors.Is(err, ErrMissingEnvVar) {
		t.Fatalf("expected ErrMissingEnvVar, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("JWT_SECRET", "s3cr3t")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "0.0.0.0" {
		t.Fatalf("expected default host, got %q", cfg.Host)
	}
	if cfg.WSPort != 4434 {
		t.Fatalf("expected default ws port 4434, got %d", cfg.WSPort)
	}
	if cfg.NATSURL != "localhost:4222" {
		t.Fatalf("expected default nats url, got %q", cfg.NATSURL)
	}
	if cfg.EnableWebTransport {
		t.Fatal("expected webtransport disabled by default")
	}
	if cfg.FanInBuffer != 256 {
		t.Fatalf("expected default fanin buffer 256, got %d", cfg.FanInBuffer)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("GATEWAY_WS_PORT", "not-a-port")

	_, err := Load("")
	if !errors.Is(err, ErrInvalidPort) {
		t.Fatalf("expected ErrInvalidPort, got %v", err)
	}
}

func TestLoad_OverlayAppliesOnTopOfEnv(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("GATEWAY_HOST", "127.0.0.1")

	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.json")
	if err := os.WriteFile(path, []byte(`{"host":"10.0.0.1","ws_port":9000,"nats_url":"nats://bus:4222"}`), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "10.0.0.1" {
		t.Fatalf("expected overlay host to win, got %q", cfg.Host)
	}
	if cfg.WSPort != 9000 {
		t.Fatalf("expected overlay ws port, got %d", cfg.WSPort)
	}
	if cfg.NATSURL != "nats://bus:4222" {
		t.Fatalf("expected overlay nats url, got %q", cfg.NATSURL)
	}
}

func TestLoad_OverlayMissingFile(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("JWT_SECRET", "s3cr3t")

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing overlay file")
	}
}
