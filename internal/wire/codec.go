package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// DecodeError is the single error type returned for any malformed frame:
// a truncated buffer, an unknown tag, invalid UTF-8 in a string field, or
// trailing bytes after a fully-decoded message.
type DecodeError struct {
	Detail string
}

func (e *DecodeError) Error() string { return "decode: " + e.Detail }

func decodeErrf(format string, args ...any) error {
	return &DecodeError{Detail: fmt.Sprintf(format, args...)}
}

// EncodeClient serializes msg into its framed byte representation.
func EncodeClient(msg ClientMessage) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(msg.Tag))
	switch msg.Tag {
	case TagAuth:
		writeString(&buf, msg.Token)
	case TagSubscribe:
		writeString(&buf, msg.Subject)
		writeUvarint(&buf, msg.ID)
	case TagUnsubscribe:
		writeUvarint(&buf, msg.ID)
	case TagPublish:
		writeString(&buf, msg.Subject)
		writeBytes(&buf, msg.Payload)
	case TagRequest:
		writeString(&buf, msg.Subject)
		writeBytes(&buf, msg.Payload)
		writeUvarint(&buf, uint64(msg.TimeoutMS))
		writeUvarint(&buf, msg.RequestID)
	case TagPing:
		// no fields
	}
	return buf.Bytes()
}

// DecodeClient parses a single framed ClientMessage. Any malformed input —
// truncated buffer, unknown tag, invalid UTF-8, trailing bytes — yields a
// single *DecodeError.
func DecodeClient(frame []byte) (ClientMessage, error) {
	r := &reader{buf: frame}
	tagByte, err := r.readByte()
	if err != nil {
		return ClientMessage{}, err
	}

	var msg ClientMessage
	msg.Tag = ClientTag(tagByte)

	switch msg.Tag {
	case TagAuth:
		msg.Token, err = r.readString()
	case TagSubscribe:
		msg.Subject, err = r.readString()
		if err == nil {
			msg.ID, err = r.readUvarint()
		}
	case TagUnsubscribe:
		msg.ID, err = r.readUvarint()
	case TagPublish:
		msg.Subject, err = r.readString()
		if err == nil {
			msg.Payload, err = r.readBytes()
		}
	case TagRequest:
		msg.Subject, err = r.readString()
		if err == nil {
			msg.Payload, err = r.readBytes()
		}
		if err == nil {
			var timeout uint64
			timeout, err = r.readUvarint()
			msg.TimeoutMS = uint32(timeout)
		}
		if err == nil {
			msg.RequestID, err = r.readUvarint()
		}
	case TagPing:
		// no fields
	default:
		return ClientMessage{}, decodeErrf("unknown client tag %d", tagByte)
	}
	if err != nil {
		return ClientMessage{}, err
	}
	if !r.exhausted() {
		return ClientMessage{}, decodeErrf("trailing bytes after client message")
	}
	return msg, nil
}

// EncodeServer serializes msg into its framed byte representation.
func EncodeServer(msg ServerMessage) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(msg.Tag))
	switch msg.Tag {
	case TagAuthOk:
		writeString(&buf, msg.SessionID)
	case TagAuthError:
		writeString(&buf, msg.Reason)
	case TagSubscribeOk:
		writeUvarint(&buf, msg.ID)
	case TagSubscribeError:
		writeUvarint(&buf, msg.ID)
		writeString(&buf, msg.Reason)
	case TagMessage:
		writeUvarint(&buf, msg.SubscriptionID)
		writeString(&buf, msg.Subject)
		writeBytes(&buf, msg.Payload)
	case TagResponse:
		writeUvarint(&buf, msg.RequestID)
		writeBytes(&buf, msg.Payload)
	case TagRequestError:
		writeUvarint(&buf, msg.RequestID)
		writeString(&buf, msg.Reason)
	case TagError:
		writeUvarint(&buf, uint64(msg.Code))
		writeString(&buf, msg.Message)
	case TagPong:
		// no fields
	}
	return buf.Bytes()
}

// DecodeServer parses a single framed ServerMessage.
func DecodeServer(frame []byte) (ServerMessage, error) {
	r := &reader{buf: frame}
	tagByte, err := r.readByte()
	if err != nil {
		return ServerMessage{}, err
	}

	var msg ServerMessage
	msg.Tag = ServerTag(tagByte)

	switch msg.Tag {
	case TagAuthOk:
		msg.SessionID, err = r.readString()
	case TagAuthError:
		msg.Reason, err = r.readString()
	case TagSubscribeOk:
		msg.ID, err = r.readUvarint()
	case TagSubscribeError:
		msg.ID, err = r.readUvarint()
		if err == nil {
			msg.Reason, err = r.readString()
		}
	case TagMessage:
		msg.SubscriptionID, err = r.readUvarint()
		if err == nil {
			msg.Subject, err = r.readString()
		}
		if err == nil {
			msg.Payload, err = r.readBytes()
		}
	case TagResponse:
		msg.RequestID, err = r.readUvarint()
		if err == nil {
			msg.Payload, err = r.readBytes()
		}
	case TagRequestError:
		msg.RequestID, err = r.readUvarint()
		if err == nil {
			msg.Reason, err = r.readString()
		}
	case TagError:
		var code uint64
		code, err = r.readUvarint()
		msg.Code = uint32(code)
		if err == nil {
			msg.Message, err = r.readString()
		}
	case TagPong:
		// no fields
	default:
		return ServerMessage{}, decodeErrf("unknown server tag %d", tagByte)
	}
	if err != nil {
		return ServerMessage{}, err
	}
	if !r.exhausted() {
		return ServerMessage{}, decodeErrf("trailing bytes after server message")
	}
	return msg, nil
}

// --- primitives ---

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) exhausted() bool { return r.pos >= len(r.buf) }

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, decodeErrf("unexpected end of frame reading tag")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, decodeErrf("truncated or invalid varint")
	}
	r.pos += n
	return v, nil
}

func (r *reader) readBytes() ([]byte, error) {
	length, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	if length > uint64(len(r.buf)-r.pos) {
		return nil, decodeErrf("length-prefixed field exceeds remaining frame")
	}
	start := r.pos
	r.pos += int(length)
	out := make([]byte, length)
	copy(out, r.buf[start:r.pos])
	return out, nil
}

func (r *reader) readString() (string, error) {
	b, err := r.readBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", decodeErrf("invalid utf-8 in string field")
	}
	return string(b), nil
}
