//go:build quic

// This file is only built with the quic tag: it links quic-go/http3 and
// quic-go/webtransport-go into the binary and registers startWebTransport so
// Supervisor.New actually boots the second listener SPEC_FULL.md describes,
// instead of leaving it unreachable.
package supervisor

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"
	"github.com/rskv-p/meshgate/internal/auth"
	"github.com/rskv-p/meshgate/internal/bridge"
	"github.com/rskv-p/meshgate/internal/config"
	"github.com/rskv-p/meshgate/internal/gateway"
	"github.com/rskv-p/meshgate/internal/transport"
)

func init() {
	startWebTransport = newWebtransportHandle
}

// wtHandle adapts a running *webtransport.Server to the webtransportHandle
// interface Supervisor drives. closing is set before the deliberate Close
// call so the listener goroutine can tell an intentional shutdown apart
// from a genuine listen failure and avoid reporting the former on errCh.
type wtHandle struct {
	server  *webtransport.Server
	errCh   chan error
	closing atomic.Bool
}

func (h *wtHandle) Err() <-chan error { return h.errCh }

func (h *wtHandle) Close() error {
	h.closing.Store(true)
	return h.server.Close()
}

// newWebtransportHandle loads TLS (a configured cert pair, or a dev
// self-signed identity) and starts the HTTP/3 listener on cfg.WTPort,
// serving /wt with transport.ServeWebTransport over a single
// gateway.Handler per session, exactly as handleWS does for WebSocket.
func newWebtransportHandle(cfg config.Config, validator *auth.Validator, bus bridge.Bridge, handlerCfg gateway.Config) (webtransportHandle, error) {
	tlsConfig, err := transport.LoadTLSConfig(cfg.TLSCertPath, cfg.TLSKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load tls config: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.WTPort)
	wtServer := &webtransport.Server{
		H3: http3.Server{
			Addr:      addr,
			TLSConfig: tlsConfig,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/wt", transport.ServeWebTransport(wtServer, validator, bus, handlerCfg))
	wtServer.H3.Handler = mux

	handle := &wtHandle{server: wtServer, errCh: make(chan error, 1)}
	go func() {
		if err := wtServer.ListenAndServe(); err != nil && !handle.closing.Load() {
			handle.errCh <- fmt.Errorf("listen %s: %w", addr, err)
		}
	}()

	return handle, nil
}
