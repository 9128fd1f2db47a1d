// Package session runs the message loop between the browser and the script
// directory.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/p00ya/userscript-bridge/internal/nativemsg"
	"github.com/p00ya/userscript-bridge/internal/userscript"
	"github.com/p00ya/userscript-bridge/internal/watch"
)

// Conn is the channel to the browser.  *nativemsg.Conn implements it.
type Conn interface {
	Receive() (nativemsg.Message, error)
	Send(v any) (int, error)
}

// Scanner produces the current script set.  *userscript.Store implements
// it.
type Scanner interface {
	Scan() ([]userscript.Record, error)
}

// Session relays scripts to one browser connection.
//
// Create a Session with New and call Run once.
type Session struct {
	// ID identifies the session in log lines.
	ID string

	conn    Conn
	scanner Scanner
	updates <-chan []watch.Event
	logger  *slog.Logger

	// paused suppresses watcher-triggered pushes.  Only accessed by Run.
	paused bool
}

// New returns a Session.  updates delivers debounced directory changes; it
// may be nil if the directory is not watched.
func New(conn Conn, scanner Scanner, updates <-chan []watch.Event, logger *slog.Logger) *Session {
	id := ulid.Make().String()
	return &Session{
		ID:      id,
		conn:    conn,
		scanner: scanner,
		updates: updates,
		logger:  logger.With("session", id),
	}
}

// inbound is the result of one Receive call.
type inbound struct {
	msg nativemsg.Message
	err error
}

// Run pushes the script set, then serves requests and directory changes
// until the browser closes the channel or ctx is cancelled, both of which
// return nil.  A malformed frame also ends the session with nil, since the
// stream cannot be resynchronized.  Failing to write to the browser returns
// an error.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.pushScripts("startup"); err != nil {
		return err
	}

	received := make(chan inbound)
	go s.readLoop(ctx, received)

	updates := s.updates
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session interrupted")
			return nil

		case in := <-received:
			switch {
			case in.err == nil:
				if err := s.dispatch(in.msg); err != nil {
					return err
				}
			case errors.Is(in.err, io.EOF):
				// Clean exit - the browser closed the port.
				s.logger.Info("browser closed channel")
				return nil
			case errors.Is(in.err, nativemsg.ErrProtocol):
				s.logger.Error("malformed message, ending session", "err", in.err)
				return nil
			default:
				return fmt.Errorf("reading from browser: %w", in.err)
			}

		case batch, ok := <-updates:
			if !ok {
				s.logger.Warn("directory watcher stopped, changes will not be pushed")
				updates = nil
				continue
			}
			if s.paused {
				s.logger.Debug("watcher pushes paused, ignoring changes", "events", len(batch))
				continue
			}
			s.logger.Debug("scripts changed", "events", len(batch))
			if err := s.pushScripts("change"); err != nil {
				return err
			}
		}
	}
}

// readLoop forwards messages from the browser until a read fails or ctx is
// cancelled.  It has exclusive use of conn.Receive.
func (s *Session) readLoop(ctx context.Context, out chan<- inbound) {
	for {
		msg, err := s.conn.Receive()
		select {
		case out <- inbound{msg: msg, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// dispatch handles one message from the browser.
func (s *Session) dispatch(msg nativemsg.Message) error {
	s.logger.Debug("received message", "type", msg.Type)

	switch msg.Type {
	case TypeTestConnection:
		_, err := s.send(ConnectionOK{Type: TypeConnectionOK})
		return err
	case TypeGetScripts:
		return s.pushScripts("request")
	case TypeStopWatcher:
		s.paused = true
	case TypeStartWatcher:
		s.paused = false
	default:
		// Newer extensions may send types this host doesn't know.
		s.logger.Debug("ignoring message", "type", msg.Type)
	}
	return nil
}

// pushScripts scans the directory and sends the result.
func (s *Session) pushScripts(reason string) error {
	records, err := s.scanner.Scan()
	if err != nil {
		// The browser still gets an answer; an unreadable directory looks
		// like an empty one.
		s.logger.Error("scanning scripts", "err", err)
	}
	if records == nil {
		records = []userscript.Record{}
	}

	n, err := s.send(ScriptsUpdate{Type: TypeScriptsUpdate, Scripts: records})
	if err != nil {
		return err
	}
	if n > nativemsg.MaxOutboundPayload {
		s.logger.Warn("scripts update exceeds browser message limit",
			"bytes", n, "limit", nativemsg.MaxOutboundPayload)
	}
	s.logger.Info("sent scripts",
		"reason", reason,
		"count", len(records),
		"bytes", n,
		"digest", userscript.Digest(records))
	return nil
}

func (s *Session) send(v any) (int, error) {
	n, err := s.conn.Send(v)
	if err != nil {
		return 0, fmt.Errorf("writing to browser: %w", err)
	}
	return n, nil
}
