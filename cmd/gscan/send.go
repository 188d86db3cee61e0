package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/gscan/machine/grbl"
)

var sendCmd = &cobra.Command{
	Use:   "send FILE",
	Short: "Stream a G-code file to the machine",
	Long: `Stream a G-code file through the flow-controlled queue and wait for every
line to be acknowledged. Lines rejected by the controller are reported with
their line number; the exit status is non-zero if any were.`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

// sendTracker counts outstanding commands and records failures by line.
type sendTracker struct {
	grbl.NopSink

	wg    sync.WaitGroup
	mx    sync.Mutex
	lines map[grbl.Command]int
	fails []lineError
}

func (t *sendTracker) add(l programLine) {
	t.mx.Lock()
	t.lines[l.Cmd] = l.Line
	t.mx.Unlock()
	t.wg.Add(1)
}

func (t *sendTracker) ResponseOk(cmd grbl.Command) { t.wg.Done() }
func (t *sendTracker) ResponseError(cmd grbl.Command, err error) {
	t.mx.Lock()
	t.fails = append(t.fails, lineError{Line: t.lines[cmd], Cmd: cmdText(cmd), Error: err.Error()})
	t.mx.Unlock()
	t.wg.Done()
}

func runSend(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	prog, err := readProgram(f, lineLimit())
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	t := &sendTracker{lines: make(map[grbl.Command]int, len(prog))}
	sess, err := openSession(cmd.Context(), t, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	return streamProgram(cmd.Context(), sess, sess.Done(), t, prog, cmd.OutOrStdout())
}

// streamProgram queues every line, then waits until each has a response or
// closed is closed.
func streamProgram(ctx context.Context, m machine, closed <-chan struct{}, t *sendTracker, prog []programLine, out io.Writer) error {
	for _, l := range prog {
		t.add(l)
		err := m.Enqueue(ctx, l.Cmd)
		if err != nil {
			return fmt.Errorf("line %d: %w", l.Line, err)
		}
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-closed:
		return grbl.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	t.mx.Lock()
	defer t.mx.Unlock()
	for _, f := range t.fails {
		fmt.Fprintf(out, "line %d: %s: %s\n", f.Line, f.Cmd, f.Error)
	}
	if len(t.fails) > 0 {
		return fmt.Errorf("%d of %d lines failed", len(t.fails), len(prog))
	}
	fmt.Fprintf(out, "sent %d lines\n", len(prog))
	return nil
}
