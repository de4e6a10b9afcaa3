// Package transport adapts concrete byte-stream transports — WebSocket and,
// optionally, QUIC/WebTransport — to the gateway's abstract Framed duplex
// stream, the same upgrade-then-serve shape as the fleet's runn_api.ws.go.
package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rskv-p/meshgate/internal/auth"
	"github.com/rskv-p/meshgate/internal/bridge"
	"github.com/rskv-p/meshgate/internal/gateway"
	"github.com/rskv-p/meshgate/internal/gwlog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsFramed adapts a *websocket.Conn to gateway.Framed: only binary frames
// carry protocol messages, text frames are ignored, and ping/pong control
// frames are handled by gorilla at the transport layer and never surface
// here.
type wsFramed struct {
	conn *websocket.Conn
}

func (f *wsFramed) ReadFrame() ([]byte, error) {
	for {
		msgType, data, err := f.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

func (f *wsFramed) WriteFrame(b []byte) error {
	return f.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (f *wsFramed) Close() error {
	return f.conn.Close()
}

// Router builds the chi router exposing GET /ws and GET /health, grounded
// on runn_api.ServeREST's chi wiring.
func Router(validator *auth.Validator, bus bridge.Bridge, handlerCfg gateway.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Get("/ws", handleWS(validator, bus, handlerCfg))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func handleWS(validator *auth.Validator, bus bridge.Bridge, handlerCfg gateway.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			gwlog.L().Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		conn.SetReadDeadline(time.Time{})

		framed := &wsFramed{conn: conn}
		h := gateway.New(framed, validator, bus, handlerCfg)

		if err := h.Run(r.Context()); err != nil {
			gwlog.L().Debug().Err(err).Msg("connection handler exited")
		}
	}
}
