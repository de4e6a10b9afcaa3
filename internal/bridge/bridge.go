// Package bridge is a thin façade over the external publish/subscribe bus,
// offering exactly the surface the connection handler needs: publish,
// cancellable subscribe, and request/reply with timeout.
package bridge

import (
	"context"
	"errors"
	"time"
)

// ErrRequestTimeout is returned by Request when the reply does not arrive
// before the caller's deadline. It is distinguished from other request
// failures so clients can tell the two apart.
var ErrRequestTimeout = errors.New("bridge: request timeout")

// BusMessage is a (subject, payload) pair delivered for an active
// subscription.
type BusMessage struct {
	Subject string
	Payload []byte
}

// SubscriptionHandle cancels a single active subscription. Cancel is
// idempotent and safe to call multiple times or concurrently.
type SubscriptionHandle interface {
	Cancel()
}

// Bridge abstracts the external bus. Implementations are shared read-only
// across every connection after construction; any internal mutability
// (reconnects, interest maps) is the implementation's concern.
type Bridge interface {
	// Publish is fire-and-forget at the bus layer: success means the bus
	// acknowledged receipt, not that any subscriber received it.
	Publish(subject string, payload []byte) error

	// Subscribe spawns a background producer forwarding every bus delivery
	// on subject into sink as a BusMessage, until the bus stream ends, sink
	// is closed/full-and-dropped, or the returned handle is cancelled.
	Subscribe(subject string, sink chan<- BusMessage) (SubscriptionHandle, error)

	// Request issues a bus request/reply, racing it against timeout (and
	// ctx's own deadline, if sooner). A timed-out request returns
	// ErrRequestTimeout.
	Request(ctx context.Context, subject string, payload []byte, timeout time.Duration) ([]byte, error)

	// Close releases the underlying bus connection.
	Close()
}
