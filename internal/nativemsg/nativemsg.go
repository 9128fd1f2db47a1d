// Package nativemsg implements the browser native messaging wire protocol.
//
// Every message in either direction is a UTF-8 JSON payload preceded by a
// 4-byte unsigned length.  Browsers define the length in the host's native
// byte order; this package fixes it to little-endian, which is the order of
// every platform a browser ships native messaging on.
package nativemsg

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// headerLen is the number of bytes in the native messaging header.
const headerLen = 4

// MaxInboundPayload is the largest payload accepted from the browser.
// Browsers cap messages sent to a host at 64 MiB.
const MaxInboundPayload = 64 << 20

// MaxOutboundPayload is the largest payload browsers accept from a host.
// Larger messages make the browser drop the port.
const MaxOutboundPayload = 1 << 20

// byteOrder is the byte order of the length header.
var byteOrder = binary.LittleEndian

// ErrProtocol is wrapped by every error caused by a malformed frame.  There
// is no way to resynchronize after one, so callers should end the session.
var ErrProtocol = errors.New("native messaging protocol error")

// ErrPayloadTooLarge is returned when a message cannot be framed because its
// encoding does not fit in the length header.
var ErrPayloadTooLarge = errors.New("payload too large")

// Message is a message received from the browser.
type Message struct {
	// Type discriminates the message.  It is empty if the payload had no
	// string "type" field or was not a JSON object.
	Type string `json:"type"`

	// Raw is the complete JSON payload.
	Raw json.RawMessage `json:"-"`
}

// ReadPayload reads one framed payload from r.
//
// It returns io.EOF if r is at end-of-stream before any header byte, which
// is how the browser signals that it closed the port.  Truncated frames and
// oversized lengths return errors wrapping ErrProtocol.
func ReadPayload(r io.Reader) ([]byte, error) {
	header := make([]byte, headerLen)
	switch n, err := io.ReadFull(r, header); {
	case n == 0 && errors.Is(err, io.EOF):
		// Clean shutdown from the browser's end.
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: wanted %d-byte header, read %d bytes", ErrProtocol, headerLen, n)
	case err != nil:
		return nil, fmt.Errorf("reading header: %w", err)
	}

	payloadLen := byteOrder.Uint32(header)
	if payloadLen > MaxInboundPayload {
		return nil, fmt.Errorf("%w: want at most %d-byte payload, got %d", ErrProtocol, MaxInboundPayload, payloadLen)
	}

	payload := make([]byte, payloadLen)
	if n, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: wanted %d-byte payload, read %d bytes", ErrProtocol, payloadLen, n)
		}
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return payload, nil
}

// Decode reads and parses one message from r.  See ReadPayload for the
// end-of-stream contract.
func Decode(r io.Reader) (Message, error) {
	payload, err := ReadPayload(r)
	if err != nil {
		return Message{}, err
	}
	return parseMessage(payload)
}

func parseMessage(payload []byte) (Message, error) {
	if !utf8.Valid(payload) {
		return Message{}, fmt.Errorf("%w: payload is not valid UTF-8", ErrProtocol)
	}
	if !json.Valid(payload) {
		return Message{}, fmt.Errorf("%w: payload is not valid JSON", ErrProtocol)
	}

	m := Message{Raw: payload}
	// Valid JSON without a usable "type" leaves Type empty; the session
	// ignores such messages.
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		m.Type = envelope.Type
	}
	return m, nil
}

// Encode returns the wire encoding of v: the length header followed by the
// JSON payload.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(make([]byte, headerLen))

	enc := json.NewEncoder(&buf)
	// Script bodies are full of '<' and '&'; escaping them only inflates
	// the payload.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}

	frame := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	payloadLen := uint64(len(frame) - headerLen)
	if payloadLen > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, payloadLen)
	}
	byteOrder.PutUint32(frame[:headerLen], uint32(payloadLen))
	return frame, nil
}

// writeFrame writes a complete frame, retrying short writes.
func writeFrame(out io.Writer, buf []byte) error {
	for len(buf) > 0 {
		switch n, err := out.Write(buf); {
		case err != nil:
			return err
		case n == 0:
			return io.ErrShortWrite
		default:
			buf = buf[n:]
		}
	}
	return nil
}
