// Package lidar talks to a ranging sensor that streams `timestamp,distance`
// lines and accepts `start` and `stop` commands.
package lidar

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/mastercactapus/gscan/linebuf"
)

// Reading is one distance sample.
type Reading struct {
	// Timestamp is the sensor's own clock, in milliseconds.
	Timestamp uint64
	Distance  float64
}

// Handler receives sensor events. Calls come from the client's read
// goroutine, one at a time.
type Handler interface {
	Reading(r Reading)
	Disconnected()
}

type Config struct {
	Logger *slog.Logger
}

// ParseReading decodes a `timestamp,distance` line.
func ParseReading(line string) (Reading, error) {
	ts, dist, ok := strings.Cut(line, ",")
	if !ok {
		return Reading{}, errors.New("missing ',' separator")
	}
	var r Reading
	var err error
	r.Timestamp, err = strconv.ParseUint(strings.TrimSpace(ts), 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("timestamp: %w", err)
	}
	r.Distance, err = strconv.ParseFloat(strings.TrimSpace(dist), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("distance: %w", err)
	}
	return r, nil
}

// Client is a connection to one sensor.
type Client struct {
	rw  io.ReadWriter
	h   Handler
	log *slog.Logger

	wMx sync.Mutex

	framer linebuf.Framer

	closeOnce sync.Once
	done      chan struct{}
}

// Open starts reading from rw. If rw implements io.Closer it is closed by
// Close.
func Open(rw io.ReadWriter, h Handler, cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{
		rw:   rw,
		h:    h,
		log:  cfg.Logger,
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// OpenSerial opens the sensor's serial device. Closing it unblocks a
// pending read.
func OpenSerial(name string, baud int) (io.ReadWriteCloser, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return p, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.h.Disconnected()

	buf := make([]byte, 256)
	for {
		n, err := c.rw.Read(buf)
		for line := range c.framer.Append(buf[:n]) {
			r, perr := ParseReading(line)
			if perr != nil {
				c.log.Warn("bad reading", "line", line, "err", perr)
				continue
			}
			c.h.Reading(r)
		}
		if err != nil {
			c.log.Info("sensor disconnected", "err", err)
			return
		}
	}
}

func (c *Client) send(cmd string) error {
	c.wMx.Lock()
	defer c.wMx.Unlock()
	_, err := io.WriteString(c.rw, cmd+"\n")
	return err
}

// Start asks the sensor to begin streaming.
func (c *Client) Start() error { return c.send("start") }

// Stop asks the sensor to stop streaming.
func (c *Client) Stop() error { return c.send("stop") }

// Done is closed once the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close closes the transport and waits for the read loop to exit. The
// transport's Close must unblock a pending Read, as ports from OpenSerial
// and pipes do. It does nothing if the transport is not an io.Closer.
func (c *Client) Close() error {
	cl, ok := c.rw.(io.Closer)
	if !ok {
		return nil
	}
	var err error
	c.closeOnce.Do(func() { err = cl.Close() })
	<-c.done
	return err
}
