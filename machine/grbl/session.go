package grbl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Session runs an Engine against a live transport.
//
// A single goroutine owns the Engine; inbound data, status poll ticks and
// caller requests are all funneled into it, so no Engine state is shared.
// Once the transport fails or Close is called the session is finished for
// good: queued commands are dropped and EventSink.Disconnected fires.
type Session struct {
	rw  io.ReadWriter
	eng *Engine
	log *slog.Logger

	poll *Poller

	data    chan []byte
	readErr chan error
	reqs    chan request

	closeCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	err error
}

type request struct {
	fn  func(*Engine) error
	res chan error
}

// Open starts a session over rw. If rw implements io.Closer it is closed when
// the session ends.
func Open(rw io.ReadWriter, cfg Config) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		rw:  rw,
		eng: NewEngine(rw, cfg),
		log: cfg.Logger,

		poll: NewPoller(cfg.PollInterval),

		data:    make(chan []byte),
		readErr: make(chan error, 1),
		reqs:    make(chan request),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	go s.loop()

	return s
}

func (s *Session) readLoop() {
	buf := make([]byte, 1024)
	for {
		n, err := s.rw.Read(buf)
		if n > 0 {
			p := make([]byte, n)
			copy(p, buf[:n])
			select {
			case s.data <- p:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.readErr <- err
			return
		}
	}
}

func (s *Session) loop() {
	defer close(s.done)

	for {
		var err error
		select {
		case p := <-s.data:
			err = s.eng.HandleData(p)
		case err = <-s.readErr:
			if err == nil {
				err = io.EOF
			}
		case <-s.poll.C():
			err = s.eng.PollStatus()
		case req := <-s.reqs:
			req.res <- req.fn(s.eng)
			err = s.eng.Err()
		case <-s.closeCh:
			s.shutdown(ErrClosed)
			return
		}
		if err != nil {
			s.shutdown(err)
			return
		}
	}
}

func (s *Session) shutdown(cause error) {
	s.poll.Stop()
	s.err = cause
	if errors.Is(cause, ErrClosed) {
		s.log.Info("session closed")
	} else {
		s.log.Error("transport failed", "err", cause)
	}

	if c, ok := s.rw.(io.Closer); ok {
		err := c.Close()
		if err != nil {
			s.log.Warn("close transport", "err", err)
		}
	}
	s.eng.Disconnect()
}

// do runs fn on the session goroutine.
func (s *Session) do(ctx context.Context, fn func(*Engine) error) error {
	req := request{fn: fn, res: make(chan error, 1)}
	select {
	case s.reqs <- req:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// the loop always answers a request it accepted
	return <-req.res
}

// Enqueue queues cmd for sending. It returns once the command is queued, not
// when it completes; completion is reported to the EventSink.
func (s *Session) Enqueue(ctx context.Context, cmd Command) error {
	return s.do(ctx, func(e *Engine) error { return e.Enqueue(cmd) })
}

// Snapshot returns the current machine status and queue statistics.
func (s *Session) Snapshot(ctx context.Context) (stat Status, qs QueueStats, err error) {
	err = s.do(ctx, func(e *Engine) error {
		stat = e.Status()
		qs = e.Stats()
		return nil
	})
	return stat, qs, err
}

// Close ends the session and waits for it to finish.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closeCh) })
	<-s.done
	return nil
}

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns why the session ended; ErrClosed after Close. Valid once Done
// is closed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
