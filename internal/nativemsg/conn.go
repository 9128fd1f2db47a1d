package nativemsg

import (
	"fmt"
	"io"
	"sync"
)

// Conn is one side of a native messaging channel.
//
// Receive must only be called from one goroutine at a time.  Send may be
// called from any number of goroutines: each message is encoded, written and
// flushed under a lock so frames never interleave on the writer.
type Conn struct {
	// reader is the stream from the peer (stdin for a host).
	reader io.Reader

	// mu serializes Send.
	mu sync.Mutex

	// writer is the stream to the peer (stdout for a host).  Only written
	// to while holding mu.
	writer io.Writer
}

// flusher is implemented by buffered writers such as *bufio.Writer.
type flusher interface {
	Flush() error
}

// NewConn returns a Conn reading frames from r and writing frames to w.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{reader: r, writer: w}
}

// Receive blocks until the next message arrives.  It returns io.EOF when the
// peer closes the stream cleanly.
func (c *Conn) Receive() (Message, error) {
	return Decode(c.reader)
}

// Send encodes v as JSON and writes it as one frame.  It returns the size of
// the JSON payload in bytes.
func (c *Conn) Send(v any) (int, error) {
	frame, err := Encode(v)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := writeFrame(c.writer, frame); err != nil {
		return 0, fmt.Errorf("writing message: %w", err)
	}
	if f, ok := c.writer.(flusher); ok {
		if err := f.Flush(); err != nil {
			return 0, fmt.Errorf("flushing message: %w", err)
		}
	}
	return len(frame) - headerLen, nil
}

// Close closes the writer if it is an io.Closer.  The reader is left alone.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if closer, ok := c.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
