package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rskv-p/meshgate/internal/gwlog"
)

// NatsBridge is the production Bridge backed by a real *nats.Conn, grounded
// on the fleet's own nats_client.Client request wrapper and core.Request's
// RespondMsg handling.
type NatsBridge struct {
	nc *nats.Conn
}

// Connect dials url synchronously; the supervisor will not begin serving
// clients until this returns, per the gateway's startup contract.
func Connect(url string, opts ...nats.Option) (*NatsBridge, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("bridge: connect %s: %w", url, err)
	}
	return &NatsBridge{nc: nc}, nil
}

func (b *NatsBridge) Publish(subject string, payload []byte) error {
	if err := b.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("bridge: publish %s: %w", subject, err)
	}
	return nil
}

type natsSubscriptionHandle struct {
	once sync.Once
	sub  *nats.Subscription
	stop chan struct{}
}

func (h *natsSubscriptionHandle) Cancel() {
	h.once.Do(func() {
		close(h.stop)
		_ = h.sub.Unsubscribe()
	})
}

// Subscribe spawns a background goroutine pumping NATS deliveries into sink
// until the subscription's internal channel closes, sink is full (delivery
// dropped and logged — the gateway's chosen backpressure boundary), or the
// returned handle is cancelled.
func (b *NatsBridge) Subscribe(subject string, sink chan<- BusMessage) (SubscriptionHandle, error) {
	msgCh := make(chan *nats.Msg, 64)
	sub, err := b.nc.ChanSubscribe(subject, msgCh)
	if err != nil {
		return nil, fmt.Errorf("bridge: subscribe %s: %w", subject, err)
	}

	handle := &natsSubscriptionHandle{sub: sub, stop: make(chan struct{})}

	go func() {
		for {
			select {
			case <-handle.stop:
				return
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				select {
				case sink <- BusMessage{Subject: msg.Subject, Payload: msg.Data}:
				default:
					gwlog.L().Warn().Str("subject", msg.Subject).Msg("fan-in queue full, dropping delivery")
				}
			}
		}
	}()

	return handle, nil
}

// Request races a NATS request against timeout, mapping context deadline
// exceeded and "no responders" into the distinguished ErrRequestTimeout so
// clients can match on it.
func (b *NatsBridge) Request(ctx context.Context, subject string, payload []byte, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := b.nc.RequestWithContext(reqCtx, subject, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) || errors.Is(err, nats.ErrNoResponders) {
			return nil, ErrRequestTimeout
		}
		return nil, fmt.Errorf("bridge: request %s: %w", subject, err)
	}
	return msg.Data, nil
}

func (b *NatsBridge) Close() {
	b.nc.Close()
}
