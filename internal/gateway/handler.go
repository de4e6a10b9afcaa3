// Package gateway implements the transport-agnostic connection state
// machine: it decodes inbound frames, enforces auth gating, dispatches to
// the bus bridge via the session, and fans bus deliveries back out.
package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rskv-p/meshgate/internal/auth"
	"github.com/rskv-p/meshgate/internal/bridge"
	"github.com/rskv-p/meshgate/internal/gwlog"
	"github.com/rskv-p/meshgate/internal/session"
	"github.com/rskv-p/meshgate/internal/wire"
)

// state is the connection's position in Unauthenticated -> Authenticated ->
// Closing -> Closed.
type state int

const (
	stateUnauthenticated state = iota
	stateAuthenticated
	stateClosing
	stateClosed
)

// Framed is the minimal duplex, message-framed stream a transport adapter
// must provide. Both WebSocket and WebTransport adapters implement it and
// drive the same Handler loop.
type Framed interface {
	ReadFrame() ([]byte, error)
	WriteFrame([]byte) error
	Close() error
}

// Config tunes handler-local resource limits.
type Config struct {
	FanInBuffer int // default 256
}

// Handler runs the per-connection state machine described by the
// component's design: it owns exactly one Session, its subscription-handle
// map, and its inbound fan-in queue. Nothing here is shared with any other
// connection.
type Handler struct {
	framed    Framed
	validator *auth.Validator
	bus       bridge.Bridge

	state   state
	sess    *session.Session
	subs    map[uint64]bridge.SubscriptionHandle
	fanin   chan bridge.BusMessage
	results chan wire.ServerMessage

	outbound chan []byte
	done     chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Handler for one accepted connection.
func New(framed Framed, validator *auth.Validator, bus bridge.Bridge, cfg Config) *Handler {
	fanIn := cfg.FanInBuffer
	if fanIn <= 0 {
		fanIn = 256
	}
	return &Handler{
		framed:    framed,
		validator: validator,
		bus:       bus,
		state:     stateUnauthenticated,
		subs:      make(map[uint64]bridge.SubscriptionHandle),
		fanin:     make(chan bridge.BusMessage, fanIn),
		results:   make(chan wire.ServerMessage, 64),
		outbound:  make(chan []byte, 64),
		done:      make(chan struct{}),
	}
}

// Run drives the connection to completion: it returns when the transport
// closes, a fatal error occurs, or ctx is cancelled (graceful shutdown).
// Cleanup — cancelling every subscription handle and dropping the session —
// always runs before Run returns, on every exit path.
func (h *Handler) Run(ctx context.Context) error {
	inbound := make(chan []byte)
	readErr := make(chan error, 1)

	go h.readLoop(inbound, readErr)

	h.wg.Add(1)
	go h.writeLoop()

	defer h.cleanup()

	for {
		select {
		case <-ctx.Done():
			return nil

		case frame, ok := <-inbound:
			if !ok {
				err := <-readErr
				if err == io.EOF || err == nil {
					return nil
				}
				return err
			}
			h.dispatchInbound(frame)

		case busMsg := <-h.fanin:
			h.dispatchDelivery(busMsg)

		case res := <-h.results:
			h.send(res)
		}
	}
}

func (h *Handler) readLoop(out chan<- []byte, errCh chan<- error) {
	defer close(out)
	for {
		frame, err := h.framed.ReadFrame()
		if err != nil {
			errCh <- err
			return
		}
		out <- frame
	}
}

func (h *Handler) writeLoop() {
	defer h.wg.Done()
	for frame := range h.outbound {
		if err := h.framed.WriteFrame(frame); err != nil {
			gwlog.L().Debug().Err(err).Msg("write frame failed, closing connection")
			_ = h.framed.Close()
			return
		}
	}
}

func (h *Handler) send(msg wire.ServerMessage) {
	select {
	case h.outbound <- wire.EncodeServer(msg):
	default:
		gwlog.L().Warn().Msg("outbound queue full, dropping server message")
	}
}

func (h *Handler) dispatchInbound(frame []byte) {
	msg, err := wire.DecodeClient(frame)
	if err != nil {
		h.send(wire.Error(wire.CodeInvalidMessage, "Invalid message format"))
		return
	}

	if msg.Tag == wire.TagPing {
		h.send(wire.Pong())
		return
	}

	if msg.Tag == wire.TagAuth {
		h.handleAuth(msg.Token)
		return
	}

	if h.state != stateAuthenticated {
		h.send(wire.Error(wire.CodeUnauthorized, "Unauthorized"))
		return
	}

	switch msg.Tag {
	case wire.TagSubscribe:
		h.handleSubscribe(msg.Subject, msg.ID)
	case wire.TagUnsubscribe:
		h.handleUnsubscribe(msg.ID)
	case wire.TagPublish:
		h.handlePublish(msg.Subject, msg.Payload)
	case wire.TagRequest:
		h.handleRequest(msg.Subject, msg.Payload, msg.TimeoutMS, msg.RequestID)
	}
}

// handleAuth validates the token and, on success, installs a fresh Session,
// replacing any prior one. A second successful Auth on the same connection
// cancels every subscription from the previous session before the new one
// is installed, so nothing leaks.
func (h *Handler) handleAuth(token string) {
	claims, err := h.validator.Validate(token)
	if err != nil {
		h.send(wire.AuthError(err.Error()))
		return
	}

	h.cancelAllSubscriptions()
	h.sess = session.New(claims)
	h.state = stateAuthenticated
	h.send(wire.AuthOk(h.sess.ID))
}

func (h *Handler) handleSubscribe(subject string, id uint64) {
	if !auth.CanPerform(h.sess.Claims, auth.PermSubscribe, subject) {
		h.send(wire.SubscribeError(id, "Permission denied"))
		return
	}

	handle, err := h.bus.Subscribe(subject, h.fanin)
	if err != nil {
		h.send(wire.SubscribeError(id, err.Error()))
		return
	}

	if prior, ok := h.subs[id]; ok {
		prior.Cancel()
	}
	h.subs[id] = handle
	h.sess.AddSubscription(id, subject)
	h.send(wire.SubscribeOk(id))
}

func (h *Handler) handleUnsubscribe(id uint64) {
	if handle, ok := h.subs[id]; ok {
		handle.Cancel()
		delete(h.subs, id)
	}
	h.sess.RemoveSubscription(id)
	// No response on hit or miss: unsubscribe is silent and idempotent.
}

func (h *Handler) handlePublish(subject string, payload []byte) {
	if !auth.CanPerform(h.sess.Claims, auth.PermPublish, subject) {
		h.send(wire.Error(wire.CodeForbidden, "Permission denied"))
		return
	}
	if err := h.bus.Publish(subject, payload); err != nil {
		h.send(wire.Error(wire.CodeInternalError, err.Error()))
	}
}

// handleRequest spawns an independent goroutine so a slow upstream request
// never blocks frame dispatch or fan-in delivery; its result is written
// back through h.results into the outbound path.
func (h *Handler) handleRequest(subject string, payload []byte, timeoutMS uint32, requestID uint64) {
	if !auth.CanPerform(h.sess.Claims, auth.PermRequest, subject) {
		select {
		case h.results <- wire.RequestError(requestID, "Permission denied"):
		case <-h.done:
		}
		return
	}

	timeout := time.Duration(timeoutMS) * time.Millisecond
	go func() {
		reply, err := h.bus.Request(context.Background(), subject, payload, timeout)
		var res wire.ServerMessage
		if err != nil {
			res = wire.RequestError(requestID, requestReason(err))
		} else {
			res = wire.Response(requestID, reply)
		}
		select {
		case h.results <- res:
		case <-h.done:
		}
	}()
}

func requestReason(err error) string {
	if err == bridge.ErrRequestTimeout {
		return "request timeout: no responders"
	}
	return err.Error()
}

// dispatchDelivery resolves a bus delivery to a subscription id and emits a
// Message frame, or silently drops it when no live subscription matches (a
// delivery that arrived after unsubscribe, or a spurious wakeup).
func (h *Handler) dispatchDelivery(msg bridge.BusMessage) {
	if h.sess == nil {
		return
	}
	id, ok := h.sess.MatchSubscription(msg.Subject)
	if !ok {
		return
	}
	h.send(wire.Message(id, msg.Subject, msg.Payload))
}

func (h *Handler) cancelAllSubscriptions() {
	for id, handle := range h.subs {
		handle.Cancel()
		delete(h.subs, id)
	}
}

// cleanup cancels every subscription handle, drops the session, and closes
// the transport. It is idempotent and runs on every exit path from Run.
func (h *Handler) cleanup() {
	if h.state == stateClosing || h.state == stateClosed {
		return
	}
	h.state = stateClosing
	h.cancelAllSubscriptions()
	h.sess = nil
	close(h.done)
	close(h.outbound)
	h.wg.Wait()
	_ = h.framed.Close()
	h.state = stateClosed
}

var _ fmt.Stringer = state(0)

func (s state) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateAuthenticated:
		return "authenticated"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
