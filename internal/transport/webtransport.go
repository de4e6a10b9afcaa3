//go:build quic

// This adapter is only built when the quic build tag is set: it pulls in
// quic-go/webtransport-go, which nothing else in the default build depends
// on, the same way the gateway's supervisor only starts it when
// GATEWAY_ENABLE_WEBTRANSPORT is set.
package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/quic-go/webtransport-go"
	"github.com/rskv-p/meshgate/internal/auth"
	"github.com/rskv-p/meshgate/internal/bridge"
	"github.com/rskv-p/meshgate/internal/gateway"
	"github.com/rskv-p/meshgate/internal/gwlog"
)

// wtFramed multiplexes a WebTransport session into the single ordered
// Framed duplex the handler expects. Inbound messages may arrive as a
// datagram or as the single message carried by a bidirectional/unidirectional
// stream; outbound messages prefer the datagram path, falling back to a
// fresh unidirectional stream when the datagram send fails (oversized
// payload, or congestion control rejecting it), mirroring the original
// transport's documented fallback.
type wtFramed struct {
	sess *webtransport.Session

	in     chan []byte
	errCh  chan error
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newWTFramed(sess *webtransport.Session) *wtFramed {
	ctx, cancel := context.WithCancel(context.Background())
	f := &wtFramed{
		sess:   sess,
		in:     make(chan []byte, 64),
		errCh:  make(chan error, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	go f.acceptDatagrams()
	go f.acceptBidiStreams()
	go f.acceptUniStreams()
	return f
}

func (f *wtFramed) acceptDatagrams() {
	for {
		dgram, err := f.sess.ReceiveDatagram(f.ctx)
		if err != nil {
			f.fail(err)
			return
		}
		f.deliver(dgram)
	}
}

func (f *wtFramed) acceptBidiStreams() {
	for {
		stream, err := f.sess.AcceptStream(f.ctx)
		if err != nil {
			f.fail(err)
			return
		}
		go func() {
			data, err := io.ReadAll(stream)
			if err == nil {
				f.deliver(data)
			}
			_ = stream.Close()
		}()
	}
}

func (f *wtFramed) acceptUniStreams() {
	for {
		stream, err := f.sess.AcceptUniStream(f.ctx)
		if err != nil {
			f.fail(err)
			return
		}
		go func() {
			data, err := io.ReadAll(stream)
			if err == nil {
				f.deliver(data)
			}
		}()
	}
}

func (f *wtFramed) deliver(b []byte) {
	select {
	case f.in <- b:
	case <-f.ctx.Done():
	}
}

func (f *wtFramed) fail(err error) {
	select {
	case f.errCh <- err:
	default:
	}
	f.cancel()
}

func (f *wtFramed) ReadFrame() ([]byte, error) {
	select {
	case b := <-f.in:
		return b, nil
	case err := <-f.errCh:
		return nil, err
	case <-f.ctx.Done():
		return nil, f.ctx.Err()
	}
}

func (f *wtFramed) WriteFrame(b []byte) error {
	if err := f.sess.SendDatagram(b); err == nil {
		return nil
	}
	stream, err := f.sess.OpenUniStreamSync(f.ctx)
	if err != nil {
		return err
	}
	defer stream.Close()
	_, err = stream.Write(b)
	return err
}

func (f *wtFramed) Close() error {
	f.once.Do(f.cancel)
	return f.sess.CloseWithError(0, "closed")
}

// ServeWebTransport accepts one WebTransport session per incoming HTTP/3
// request and runs one gateway.Handler per session, exactly as
// handleWS does for its WebSocket counterpart.
func ServeWebTransport(wtServer *webtransport.Server, validator *auth.Validator, bus bridge.Bridge, handlerCfg gateway.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := wtServer.Upgrade(w, r)
		if err != nil {
			gwlog.L().Warn().Err(err).Msg("webtransport upgrade failed")
			return
		}

		framed := newWTFramed(sess)
		h := gateway.New(framed, validator, bus, handlerCfg)
		if err := h.Run(r.Context()); err != nil {
			gwlog.L().Debug().Err(err).Msg("webtransport connection handler exited")
		}
	}
}

// LoadTLSConfig loads the certificate pair used by the QUIC listener, or
// generates a development-only self-signed identity when both paths are
// empty (ported from transport/webtransport.rs's dev bootstrap).
func LoadTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	if certPath == "" || keyPath == "" {
		return selfSignedTLSConfig()
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h3"},
	}, nil
}

func selfSignedTLSConfig() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"meshgate dev"}},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h3"},
	}, nil
}
