package main

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/mastercactapus/gscan/machine/grbl"
)

// waiters resolves callers blocked on a specific command.
type waiters struct {
	grbl.NopSink
	m *xsync.MapOf[grbl.Command, chan error]
}

func newWaiters() *waiters {
	return &waiters{m: xsync.NewMapOf[grbl.Command, chan error]()}
}

// Add registers cmd; the returned channel receives its outcome once.
// Register before enqueueing so a fast response is not missed.
func (w *waiters) Add(cmd grbl.Command) <-chan error {
	ch := make(chan error, 1)
	w.m.Store(cmd, ch)
	return ch
}

func (w *waiters) Remove(cmd grbl.Command) { w.m.Delete(cmd) }

func (w *waiters) resolve(cmd grbl.Command, err error) {
	ch, ok := w.m.LoadAndDelete(cmd)
	if ok {
		ch <- err
	}
}

func (w *waiters) ResponseOk(cmd grbl.Command)               { w.resolve(cmd, nil) }
func (w *waiters) ResponseError(cmd grbl.Command, err error) { w.resolve(cmd, err) }

// Disconnected fails everything still waiting; queued commands are discarded
// without a response.
func (w *waiters) Disconnected() {
	w.m.Range(func(cmd grbl.Command, _ chan error) bool {
		if ch, ok := w.m.LoadAndDelete(cmd); ok {
			ch <- grbl.ErrClosed
		}
		return true
	})
}

func (w *waiters) Len() int { return w.m.Size() }
