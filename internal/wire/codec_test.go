package wire

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestClientRoundTrip(t *testing.T) {
	bigPayload := bytes.Repeat([]byte{0xAB}, 10*1024)
	unicodeSubject := "t.v1.日本語.émoji🚀"

	cases := []ClientMessage{
		Auth("a-token"),
		Auth(""),
		Subscribe("t.v1.m", 42),
		Subscribe(unicodeSubject, math.MaxUint64),
		Unsubscribe(0),
		Unsubscribe(math.MaxUint64),
		Publish("t.v1.m", []byte("hello")),
		Publish("t.v1.m", nil),
		Publish(unicodeSubject, bigPayload),
		Request("t.rpc", []byte{1, 2, 3}, 500, 7),
		Request("t.rpc", bigPayload, math.MaxUint32, math.MaxUint64),
		Ping(),
	}

	for _, msg := range cases {
		enc := EncodeClient(msg)
		dec, err := DecodeClient(enc)
		if err != nil {
			t.Fatalf("decode(%+v): %v", msg, err)
		}
		if !clientEqual(msg, dec) {
			t.Fatalf("round trip mismatch: sent %+v got %+v", msg, dec)
		}
	}
}

func TestServerRoundTrip(t *testing.T) {
	bigPayload := bytes.Repeat([]byte{0xCD}, 10*1024)

	cases := []ServerMessage{
		AuthOk("sess-123"),
		AuthError("token expired"),
		SubscribeOk(1),
		SubscribeError(9, "permission denied"),
		Message(1, "t.v1.events", []byte("body")),
		Message(math.MaxUint64, "t.v1.日本語", bigPayload),
		Response(7, []byte("reply")),
		RequestError(7, "timeout"),
		Error(CodeUnauthorized, "unauthorized"),
		Pong(),
	}

	for _, msg := range cases {
		enc := EncodeServer(msg)
		dec, err := DecodeServer(enc)
		if err != nil {
			t.Fatalf("decode(%+v): %v", msg, err)
		}
		if !serverEqual(msg, dec) {
			t.Fatalf("round trip mismatch: sent %+v got %+v", msg, dec)
		}
	}
}

func TestDecodeClient_Errors(t *testing.T) {
	if _, err := DecodeClient(nil); err == nil {
		t.Fatal("expected error decoding empty frame")
	}
	if _, err := DecodeClient([]byte{0xFF}); err == nil {
		t.Fatal("expected error for unknown tag")
	}
	// Truncated Subscribe: tag + partial length prefix
	truncated := []byte{byte(TagSubscribe), 0xFF}
	if _, err := DecodeClient(truncated); err == nil {
		t.Fatal("expected error for truncated frame")
	}
	// Trailing bytes after a complete Ping
	withTrailing := append(EncodeClient(Ping()), 0x01)
	if _, err := DecodeClient(withTrailing); err == nil {
		t.Fatal("expected error for trailing bytes")
	}
	// Invalid UTF-8 in Auth token
	invalidUTF8 := append([]byte{byte(TagAuth), 0x02}, 0xFF, 0xFE)
	if _, err := DecodeClient(invalidUTF8); err == nil {
		t.Fatal("expected error for invalid utf-8")
	}
}

func TestRequiresAuth(t *testing.T) {
	if Auth("t").RequiresAuth() {
		t.Error("Auth should not require auth")
	}
	if Ping().RequiresAuth() {
		t.Error("Ping should not require auth")
	}
	if !Subscribe("x", 1).RequiresAuth() {
		t.Error("Subscribe should require auth")
	}
	if !Publish("x", nil).RequiresAuth() {
		t.Error("Publish should require auth")
	}
}

func clientEqual(a, b ClientMessage) bool {
	return a.Tag == b.Tag && a.Token == b.Token && a.Subject == b.Subject &&
		a.ID == b.ID && bytes.Equal(a.Payload, b.Payload) &&
		a.TimeoutMS == b.TimeoutMS && a.RequestID == b.RequestID
}

func serverEqual(a, b ServerMessage) bool {
	return a.Tag == b.Tag && a.SessionID == b.SessionID && a.Reason == b.Reason &&
		a.ID == b.ID && a.SubscriptionID == b.SubscriptionID && a.Subject == b.Subject &&
		bytes.Equal(a.Payload, b.Payload) && a.RequestID == b.RequestID &&
		a.Code == b.Code && a.Message == b.Message
}

func TestDecodeServer_UnknownTag(t *testing.T) {
	_, err := DecodeServer([]byte{0xFE})
	if err == nil || !strings.Contains(err.Error(), "unknown") {
		t.Fatalf("expected unknown tag error, got %v", err)
	}
}
