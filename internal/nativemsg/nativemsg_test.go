package nativemsg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
)

// frame builds a wire frame with an explicit little-endian header.
func frame(payload string) []byte {
	buf := make([]byte, headerLen+len(payload))
	buf[0] = byte(len(payload))
	buf[1] = byte(len(payload) >> 8)
	buf[2] = byte(len(payload) >> 16)
	buf[3] = byte(len(payload) >> 24)
	copy(buf[headerLen:], payload)
	return buf
}

func TestEncode(t *testing.T) {
	got, err := Encode(map[string]string{"type": "CONNECTION_OK"})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte("\x18\x00\x00\x00{\"type\":\"CONNECTION_OK\"}")
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	got, err := Encode(map[string]string{"content": "a < b && c"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(got, []byte("a < b && c")) {
		t.Errorf("Encode() = %q, want unescaped content", got)
	}
}

func TestRoundTrip(t *testing.T) {
	var tests = []map[string]any{
		{"type": "GET_SCRIPTS"},
		{"type": "SCRIPTS_UPDATE", "scripts": []any{}},
		{"type": "X", "nested": map[string]any{"n": 1.5, "ok": true, "list": []any{"a", nil}}},
		{"unicode": "héllo wörld ✓"},
	}

	for i, m := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			wire, err := Encode(m)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Decode(bytes.NewReader(wire))
			if err != nil {
				t.Fatal(err)
			}
			var decoded map[string]any
			if err := json.Unmarshal(got.Raw, &decoded); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(decoded, m) {
				t.Errorf("round trip got %v, want %v", decoded, m)
			}
			if want, _ := m["type"].(string); got.Type != want {
				t.Errorf("Type = %q, want %q", got.Type, want)
			}
		})
	}
}

func TestDecodeCleanEOF(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("Decode() on empty stream = %v, want io.EOF", err)
	}
}

func TestDecodeProtocolErrors(t *testing.T) {
	oversized := make([]byte, headerLen)
	byteOrder.PutUint32(oversized, MaxInboundPayload+1)

	var tests = []struct {
		name string
		wire []byte
	}{
		{"ShortHeader", []byte{0x05, 0x00}},
		{"ShortPayload", frame(`{"type":"GET_SCRIPTS"}`)[:10]},
		{"Oversized", oversized},
		{"InvalidJSON", frame(`{"type":`)},
		{"InvalidUTF8", frame("{\"type\":\"\xff\"}")},
		{"Empty", frame("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.wire))
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("Decode() = %v, want ErrProtocol", err)
			}
		})
	}
}

func TestDecodeWithoutType(t *testing.T) {
	var tests = []string{`{}`, `[1,2]`, `"GET_SCRIPTS"`, `{"type":5}`}
	for _, payload := range tests {
		t.Run(payload, func(t *testing.T) {
			m, err := Decode(bytes.NewReader(frame(payload)))
			if err != nil {
				t.Fatalf("Decode() error %v", err)
			}
			if m.Type != "" {
				t.Errorf("Type = %q, want empty", m.Type)
			}
			if string(m.Raw) != payload {
				t.Errorf("Raw = %s, want %s", m.Raw, payload)
			}
		})
	}
}

func TestDecodeSequence(t *testing.T) {
	wire := append(frame(`{"type":"A"}`), frame(`{"type":"B"}`)...)
	r := bytes.NewReader(wire)
	for _, want := range []string{"A", "B"} {
		m, err := Decode(r)
		if err != nil {
			t.Fatal(err)
		}
		if m.Type != want {
			t.Errorf("Type = %q, want %q", m.Type, want)
		}
	}
	if _, err := Decode(r); err != io.EOF {
		t.Errorf("trailing Decode() = %v, want io.EOF", err)
	}
}

// shortWriter accepts at most max bytes per Write call.
type shortWriter struct {
	buf bytes.Buffer
	max int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.max {
		p = p[:w.max]
	}
	return w.buf.Write(p)
}

func TestWriteFrameShortWrites(t *testing.T) {
	w := &shortWriter{max: 3}
	want := frame(`{"type":"CONNECTION_OK"}`)
	if err := writeFrame(w, want); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(w.buf.Bytes(), want) {
		t.Errorf("wrote %q, want %q", w.buf.Bytes(), want)
	}
}

type stuckWriter struct{}

func (stuckWriter) Write(p []byte) (int, error) { return 0, nil }

func TestWriteFrameStuck(t *testing.T) {
	if err := writeFrame(stuckWriter{}, []byte("abc")); err != io.ErrShortWrite {
		t.Errorf("writeFrame() = %v, want io.ErrShortWrite", err)
	}
}

func TestParseMessageKeepsRaw(t *testing.T) {
	payload := `{"type":"START_WATCHER","directory":"/tmp/x"}`
	m, err := parseMessage([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if m.Type != "START_WATCHER" || !strings.Contains(string(m.Raw), "/tmp/x") {
		t.Errorf("parseMessage() = %+v", m)
	}
}
