package grbl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/gscan/coord"
)

type pipeTransport struct {
	*io.PipeReader

	mx  sync.Mutex
	out bytes.Buffer
}

func (p *pipeTransport) Write(b []byte) (int, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.out.Write(b)
}
func (p *pipeTransport) Written() string {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.out.String()
}

type chanSink struct{ ch chan string }

func (c chanSink) Startup(v string)                   { c.ch <- "startup " + v }
func (c chanSink) ResponseOk(cmd Command)             { c.ch <- "ok " + strings.TrimSpace(cmd.Encode()) }
func (c chanSink) ResponseError(cmd Command, _ error) { c.ch <- "error " + strings.TrimSpace(cmd.Encode()) }
func (c chanSink) PositionUpdate(p coord.Point)       { c.ch <- "pos " + p.String() }
func (c chanSink) StateUpdate(s Status)               { c.ch <- "state " + s.State.String() }
func (c chanSink) Disconnected()                      { c.ch <- "disconnected" }

func next(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return ""
	}
}

func newTestSession(t *testing.T, poll time.Duration) (*Session, *pipeTransport, *io.PipeWriter, chan string) {
	pr, pw := io.Pipe()
	tr := &pipeTransport{PipeReader: pr}
	sink := chanSink{ch: make(chan string, 100)}
	s := Open(tr, Config{PollInterval: poll, Sink: sink})
	t.Cleanup(func() { s.Close() })
	return s, tr, pw, sink.ch
}

func TestSession(t *testing.T) {
	s, tr, pw, events := newTestSession(t, 10*time.Millisecond)
	ctx := context.Background()

	assert.Eventually(t, func() bool { return strings.HasPrefix(tr.Written(), "?") }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Enqueue(ctx, NewLine("G0X1")))
	assert.NotContains(t, tr.Written(), "G0X1")

	_, err := pw.Write([]byte("Grbl 1.1h ['$' for help]\r\n<Idle|MPos:"))
	require.NoError(t, err)
	assert.Equal(t, "startup 1.1h", next(t, events))

	_, err = pw.Write([]byte("1.000,2.000,3.000>\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "state Idle", next(t, events))
	assert.Equal(t, "pos 1.000,2.000,3.000", next(t, events))
	assert.Eventually(t, func() bool { return strings.Contains(tr.Written(), "G0X1\n") }, time.Second, 5*time.Millisecond)

	_, err = pw.Write([]byte("ok\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "ok G0X1", next(t, events))

	stat, qs, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, stat.State)
	assert.Equal(t, DefaultBufferSize, qs.Budget)

	require.NoError(t, s.Close())
	assert.Equal(t, "disconnected", next(t, events))
	assert.ErrorIs(t, s.Err(), ErrClosed)

	written := tr.Written()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, written, tr.Written(), "poller must stop on close")

	assert.ErrorIs(t, s.Enqueue(ctx, NewLine("G0")), ErrClosed)
	_, _, err = s.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
	assert.Empty(t, events)
}

func TestSession_TransportLost(t *testing.T) {
	s, _, pw, events := newTestSession(t, -1)
	ctx := context.Background()

	_, err := pw.Write([]byte("<Idle>\n"))
	require.NoError(t, err)
	assert.Equal(t, "state Idle", next(t, events))

	require.NoError(t, s.Enqueue(ctx, NewLine(strings.Repeat("A", 100))))
	require.NoError(t, s.Enqueue(ctx, NewLine(strings.Repeat("B", 100))))

	pw.CloseWithError(errors.New("unplugged"))
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
	assert.EqualError(t, s.Err(), "unplugged")
	assert.Equal(t, "disconnected", next(t, events))
	assert.Empty(t, events)
}

func TestSession_EnqueueContext(t *testing.T) {
	s, _, _, _ := newTestSession(t, -1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// either outcome is valid for a canceled context, but it must not hang
	err := s.Enqueue(ctx, NewLine("G0"))
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

// idlePort never produces data; a Read blocks until Close, like a quiet
// serial port.
type idlePort struct {
	closed chan struct{}
	once   sync.Once
	inRead atomic.Int32
}

func (p *idlePort) Read([]byte) (int, error) {
	p.inRead.Add(1)
	defer p.inRead.Add(-1)
	<-p.closed
	return 0, io.ErrClosedPipe
}
func (p *idlePort) Write(b []byte) (int, error) { return len(b), nil }
func (p *idlePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func TestSession_CloseIdle(t *testing.T) {
	p := &idlePort{closed: make(chan struct{})}
	s := Open(p, Config{PollInterval: -1})
	require.Eventually(t, func() bool { return p.inRead.Load() == 1 }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on an idle transport")
	}
	assert.ErrorIs(t, s.Err(), ErrClosed)

	// the reader goroutine must not outlive the session
	assert.Eventually(t, func() bool { return p.inRead.Load() == 0 }, time.Second, time.Millisecond)
}
