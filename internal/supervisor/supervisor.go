// Package supervisor wires the gateway's shared components together: it
// owns the Token Validator and Bus Bridge, binds the configured listener(s),
// accepts connections, and coordinates graceful shutdown — the Go
// equivalent of the fleet's own servs/s_runn/main.go bootstrap sequence.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rskv-p/meshgate/internal/auth"
	"github.com/rskv-p/meshgate/internal/bridge"
	"github.com/rskv-p/meshgate/internal/config"
	"github.com/rskv-p/meshgate/internal/gateway"
	"github.com/rskv-p/meshgate/internal/gwlog"
	"github.com/rskv-p/meshgate/internal/transport"
)

// webtransportHandle is the running QUIC/WebTransport listener Supervisor
// holds alongside its WebSocket listener when enabled. Only the
// quic-tagged build registers startWebTransport below; a default build
// never constructs one.
type webtransportHandle interface {
	io.Closer
	// Err reports a fatal serve error, if any; it never receives on a
	// clean Close.
	Err() <-chan error
}

// startWebTransport is nil in the default build. The quic-tagged
// internal/supervisor/webtransport_quic.go registers an implementation in
// its init, so the two transports stay linked only when the build opts in.
var startWebTransport func(cfg config.Config, validator *auth.Validator, bus bridge.Bridge, handlerCfg gateway.Config) (webtransportHandle, error)

// Supervisor owns everything shared read-only across connections and the
// bound WebSocket listener.
type Supervisor struct {
	cfg       config.Config
	validator *auth.Validator
	bus       bridge.Bridge

	listener net.Listener
	server   *http.Server

	wt webtransportHandle
}

// New builds a Supervisor over bus, which the caller has already connected
// (so no client is served before the bus is reachable), and binds the
// WebSocket listener, which may be on an OS-assigned port (cfg.WSPort==0).
// When cfg.EnableWebTransport is set it also starts the QUIC/WebTransport
// listener on cfg.WTPort, failing New if the binary was not built with the
// quic build tag.
func New(cfg config.Config, bus bridge.Bridge) (*Supervisor, error) {
	validator := auth.NewValidator(cfg.JWTSecret)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.WSPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("supervisor: bind %s: %w", addr, err)
	}

	handlerCfg := gateway.Config{FanInBuffer: cfg.FanInBuffer}
	router := transport.Router(validator, bus, handlerCfg)

	sup := &Supervisor{
		cfg:       cfg,
		validator: validator,
		bus:       bus,
		listener:  ln,
		server:    &http.Server{Handler: router},
	}

	if cfg.EnableWebTransport {
		if startWebTransport == nil {
			ln.Close()
			return nil, fmt.Errorf("supervisor: GATEWAY_ENABLE_WEBTRANSPORT is set but this binary was built without the quic build tag")
		}
		wt, err := startWebTransport(cfg, validator, bus, handlerCfg)
		if err != nil {
			ln.Close()
			return nil, fmt.Errorf("supervisor: start webtransport listener: %w", err)
		}
		sup.wt = wt
	}

	return sup, nil
}

// Addr returns the bound WebSocket listener address, resolving an
// OS-assigned port to its actual value.
func (s *Supervisor) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve blocks accepting connections on the WebSocket listener (and, when
// enabled, the WebTransport listener) until ctx is cancelled, then shuts the
// HTTP server down, waiting up to cfg.ShutdownTimeout for in-flight plain
// HTTP requests. Upgraded WebSocket connections are hijacked from the HTTP
// server, so Serve neither waits for them nor closes them.
func (s *Supervisor) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wtErrCh stays nil (and so never fires in the select below) unless
	// WebTransport is enabled for this Supervisor.
	var wtErrCh <-chan error
	if s.wt != nil {
		wtErrCh = s.wt.Err()
	}

	select {
	case err := <-errCh:
		return err
	case err := <-wtErrCh:
		_ = s.server.Close()
		return fmt.Errorf("supervisor: webtransport: %w", err)
	case <-ctx.Done():
		gwlog.L().Info().Msg("shutdown signal received, draining connections")
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("supervisor: shutdown: %w", err)
		}
		if s.wt != nil {
			if err := s.wt.Close(); err != nil {
				gwlog.L().Warn().Err(err).Msg("webtransport listener close failed")
			}
		}
		return <-errCh
	}
}

// Close releases the bus connection. Call after Serve returns.
func (s *Supervisor) Close() {
	if s.wt != nil {
		_ = s.wt.Close()
	}
	s.bus.Close()
}
