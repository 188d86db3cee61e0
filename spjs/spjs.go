// Package spjs is a client for serial-port-json-server, which exposes serial
// ports on another host over a websocket.
package spjs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// ReconnectDelay is the wait between connection attempts.
var ReconnectDelay = 3 * time.Second

type SPJS struct {
	url string
	log *slog.Logger
	ctx context.Context

	outgoing  chan message
	incomming chan interface{}
}

type message struct {
	done    chan struct{}
	payload []byte
}

type DataFrame struct {
	Port string `json:"P"`
	Data string `json:"D"`
}
type CmdStatus struct {
	Cmd        string
	QueueCount int `json:"QCnt"`
	Type       []string
	Data       []string `json:"D"`
	ID         string   `json:"Id"`
}

type ErrorMessage struct {
	Error string
}
type SerialPortList struct {
	SerialPorts []SerialPort
}
type SerialPort struct {
	Name            string
	Friendly        string
	SerialNumber    string
	DeviceClass     string
	IsOpen          bool
	IsPrimary       bool
	RelatedNames    []string
	Baud            int
	BufferAlgorithm string
	USBVID          string
	USBPID          string
}

// NewSPJS connects to url and keeps reconnecting until ctx is done.
func NewSPJS(ctx context.Context, url string, log *slog.Logger) *SPJS {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sp := &SPJS{
		url:       url,
		log:       log,
		ctx:       ctx,
		outgoing:  make(chan message, 1000),
		incomming: make(chan interface{}, 1000),
	}

	go sp.loop()

	return sp
}

// Messages returns decoded server messages. It has a single consumer.
func (sp *SPJS) Messages() <-chan interface{} {
	return sp.incomming
}

func parseSPJSMessage(data []byte) (val interface{}, err error) {
	var msg map[string]json.RawMessage
	err = json.Unmarshal(data, &msg)
	if err != nil {
		return nil, err
	}
	check := func(fieldName string, v interface{}) bool {
		if msg[fieldName] == nil {
			return false
		}
		val = v
		err = json.Unmarshal(data, val)
		return true
	}
	if check("Error", &ErrorMessage{}) {
		return
	}
	if check("SerialPorts", &SerialPortList{}) {
		return
	}
	if check("Cmd", &CmdStatus{}) {
		return
	}
	if check("D", &DataFrame{}) {
		return
	}

	return nil, errors.New("unknown message: " + string(data))
}
func (sp *SPJS) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			sp.log.Warn("spjs read", "err", err)
			return
		}
		if !bytes.HasPrefix(data, []byte("{")) {
			// ignore echo messages
			continue
		}
		val, err := parseSPJSMessage(data)
		if err != nil {
			sp.log.Debug("spjs parse", "err", err)
			continue
		}
		select {
		case sp.incomming <- val:
		case <-sp.ctx.Done():
			return
		}
	}
}
func (sp *SPJS) loop() {
	var nextUp message

reconnect:
	for {
		if sp.ctx.Err() != nil {
			return
		}
		sp.log.Info("connecting", "url", sp.url)
		ws, _, err := websocket.DefaultDialer.DialContext(sp.ctx, sp.url, nil)
		if err != nil {
			sp.log.Error("spjs connect", "err", err)
			select {
			case <-time.After(ReconnectDelay):
			case <-sp.ctx.Done():
				return
			}
			continue
		}
		sp.log.Info("connected", "url", sp.url)
		ch := make(chan struct{})
		go sp.readLoop(ws, ch)
		// refresh list on reconnect so ports get reopened
		err = ws.WriteMessage(websocket.TextMessage, []byte("list"))
		if err != nil {
			ws.Close()
			continue
		}

		for {
			if nextUp.done != nil {
				err = ws.WriteMessage(websocket.TextMessage, nextUp.payload)
				if err != nil {
					sp.log.Error("spjs send", "err", err)
					ws.Close()
					continue reconnect
				}
				close(nextUp.done)
				nextUp.done = nil
			}

			select {
			case <-ch:
				ws.Close()
				continue reconnect
			case <-sp.ctx.Done():
				ws.Close()
				return
			case nextUp = <-sp.outgoing:
			}
		}
	}
}

// WriteString sends a raw server command and waits until it is written.
func (sp *SPJS) WriteString(ctx context.Context, data string) error {
	ch := make(chan struct{})
	select {
	case sp.outgoing <- message{done: ch, payload: []byte(data)}:
	case <-ctx.Done():
		return ctx.Err()
	case <-sp.ctx.Done():
		return sp.ctx.Err()
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-sp.ctx.Done():
		return sp.ctx.Err()
	}
}
