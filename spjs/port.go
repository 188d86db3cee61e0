package spjs

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Port is one serial port on the server, usable as a byte transport.
//
// Writes bypass the server's own buffering (`sendnobuf`) so the caller's
// flow control is the only one in effect.
type Port struct {
	sp   *SPJS
	name string
	baud int

	pr *io.PipeReader
	pw *io.PipeWriter

	closeOnce sync.Once
	done      chan struct{}
}

var _ io.ReadWriteCloser = &Port{}

// Open starts routing data for the named port and asks the server to open it
// if it is not already. Only one Port may be opened per SPJS.
func (sp *SPJS) Open(name string, baud int) *Port {
	pr, pw := io.Pipe()
	p := &Port{
		sp:   sp,
		name: name,
		baud: baud,
		pr:   pr,
		pw:   pw,
		done: make(chan struct{}),
	}
	go p.route()
	return p
}

func (p *Port) route() {
	for {
		var msg interface{}
		select {
		case <-p.done:
			return
		case <-p.sp.ctx.Done():
			p.pw.CloseWithError(p.sp.ctx.Err())
			return
		case msg = <-p.sp.Messages():
		}

		switch m := msg.(type) {
		case *DataFrame:
			if m.Port != p.name {
				continue
			}
			_, err := io.WriteString(p.pw, m.Data)
			if err != nil {
				return
			}
		case *SerialPortList:
			for _, sp := range m.SerialPorts {
				if sp.Name == p.name && !sp.IsOpen {
					go p.sp.WriteString(p.sp.ctx, fmt.Sprintf("open %s %d", p.name, p.baud))
				}
			}
		case *ErrorMessage:
			p.sp.log.Warn("spjs error", "port", p.name, "error", m.Error)
		}
	}
}

func (p *Port) Read(b []byte) (int, error) { return p.pr.Read(b) }

func (p *Port) Write(b []byte) (int, error) {
	err := p.sp.WriteString(context.Background(), "sendnobuf "+p.name+" "+string(b))
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close stops routing and asks the server to close the port.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.pr.Close()
		go p.sp.WriteString(p.sp.ctx, "close "+p.name)
	})
	return nil
}
