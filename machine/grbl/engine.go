package grbl

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mastercactapus/gscan/linebuf"
)

// Engine is the protocol core for one controller connection.
//
// It is not safe for concurrent use: a Session drives it from a single
// goroutine, and tests drive it directly. No method blocks except on writes
// to the underlying writer.
type Engine struct {
	w    io.Writer
	log  *slog.Logger
	sink EventSink
	diag func(string)

	framer     linebuf.Framer
	classifier Classifier
	handlers   map[MessageKind]func(Message)

	tracker Tracker
	queue   *Queue

	closed bool
	werr   error
}

// QueueStats is a point-in-time view of the command queue.
type QueueStats struct {
	Capacity int
	Budget   int
	Pending  int
	InFlight int
}

// NewEngine creates an Engine writing to w.
func NewEngine(w io.Writer, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		w:          w,
		log:        cfg.Logger,
		sink:       cfg.Sink,
		diag:       cfg.Diagnostics,
		classifier: cfg.Classifier,
		queue:      NewQueue(cfg.BufferSize),
	}
	e.handlers = map[MessageKind]func(Message){
		MessageStartup: e.handleStartup,
		MessageOk:      e.handleOk,
		MessageError:   e.handleError,
		MessageStatus:  e.handleStatus,
		MessageUnknown: e.handleUnknown,
	}
	return e
}

func (e *Engine) Status() Status { return e.tracker.Status() }

func (e *Engine) Stats() QueueStats {
	return QueueStats{
		Capacity: e.queue.Capacity(),
		Budget:   e.queue.Budget(),
		Pending:  e.queue.Pending(),
		InFlight: e.queue.InFlight(),
	}
}

// HandleData processes a chunk of bytes read from the controller. Partial
// lines are kept until the rest arrives.
//
// The only error returned, other than ErrClosed, is a failed write while
// dispatching commands.
func (e *Engine) HandleData(p []byte) error {
	if e.closed {
		return ErrClosed
	}
	for line := range e.framer.Append(p) {
		err := e.HandleMessage(e.classifier.Classify(line))
		if err != nil {
			return err
		}
	}
	return nil
}

// HandleMessage applies a single classified message, then sends any pending
// commands it made room for.
func (e *Engine) HandleMessage(msg Message) error {
	if e.closed {
		return ErrClosed
	}
	e.handlers[msg.Kind](msg)
	return e.service()
}

// Enqueue adds cmd to the queue and sends whatever fits.
func (e *Engine) Enqueue(cmd Command) error {
	if e.closed {
		return ErrClosed
	}
	err := e.queue.Enqueue(cmd)
	if err != nil {
		return err
	}
	return e.service()
}

// PollStatus writes a status query. It bypasses the queue: Grbl handles `?`
// immediately and it does not occupy the receive buffer.
func (e *Engine) PollStatus() error {
	if e.closed {
		return ErrClosed
	}
	_, err := e.w.Write([]byte{'?'})
	if err != nil {
		e.werr = fmt.Errorf("grbl: write: %w", err)
		return e.werr
	}
	return nil
}

// Disconnect discards all queued and in-flight commands without resolving
// them and notifies the sink once.
func (e *Engine) Disconnect() {
	if e.closed {
		return
	}
	e.closed = true
	pending, inFlight := e.queue.Discard()
	if len(pending)+len(inFlight) > 0 {
		e.log.Warn("discarding commands", "pending", len(pending), "inFlight", len(inFlight))
	}
	e.tracker.Reset()
	e.framer.Reset()
	e.sink.Disconnected()
}

// Err returns the write error that broke the transport, if any.
func (e *Engine) Err() error { return e.werr }

func (e *Engine) service() error {
	if e.closed || !e.tracker.Known() {
		return nil
	}
	_, err := e.queue.Service(func(c Command) error {
		e.log.Debug("send", "line", strings.TrimSuffix(c.Encode(), "\n"))
		_, err := io.WriteString(e.w, c.Encode())
		return err
	})
	if err != nil {
		e.werr = fmt.Errorf("grbl: write: %w", err)
		return e.werr
	}
	return nil
}

func (e *Engine) handleStartup(msg Message) {
	e.log.Info("controller startup", "version", msg.Value)
	dropped := e.queue.DropInFlight()
	e.tracker.Reset()
	for _, c := range dropped {
		e.sink.ResponseError(c, ErrDeviceReset)
	}
	e.sink.Startup(msg.Value)
}

func (e *Engine) handleOk(msg Message) {
	c, ok := e.queue.Resolve()
	if !ok {
		e.log.Warn("ok with no command in flight")
		return
	}
	e.sink.ResponseOk(c)
}

func (e *Engine) handleError(msg Message) {
	c, ok := e.queue.Resolve()
	if !ok {
		e.log.Warn("error with no command in flight", "code", msg.Value)
		return
	}
	e.log.Debug("command rejected", "line", strings.TrimSuffix(c.Encode(), "\n"), "code", msg.Value)
	e.sink.ResponseError(c, &ResponseError{Code: msg.Value})
}

func (e *Engine) handleStatus(msg Message) {
	rep, err := ParseStatus(msg.Value)
	if err != nil {
		e.log.Warn("parse status", "err", err, "line", msg.Line)
	}
	hasPos := e.tracker.Update(rep)
	stat := e.tracker.Status()
	e.sink.StateUpdate(stat)
	if hasPos {
		e.sink.PositionUpdate(stat.MPos)
	}
}

func (e *Engine) handleUnknown(msg Message) {
	e.log.Warn("unrecognized message", "line", msg.Line)
	if e.diag != nil {
		e.diag(msg.Line)
	}
}
