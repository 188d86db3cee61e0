package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"

	"github.com/mastercactapus/gscan/coord"
	"github.com/mastercactapus/gscan/machine/grbl"
	"github.com/mastercactapus/gscan/scan"
	"github.com/mastercactapus/gscan/surface"
)

type machine interface {
	Enqueue(ctx context.Context, cmd grbl.Command) error
	Snapshot(ctx context.Context) (grbl.Status, grbl.QueueStats, error)
}

type sensor interface {
	Start() error
	Stop() error
}

type api struct {
	http.Handler
	m       machine
	sensor  sensor
	rec     *scan.Recorder
	waiters *waiters
	sse     *sse.Server
	events  chan event
	log     *slog.Logger

	// bufferSize is the longest line a program may contain.
	bufferSize int
}

type event struct {
	channel string
	data    interface{}
}

type responseEvent struct {
	Cmd   string `json:"cmd"`
	Error string `json:"error,omitempty"`
}

type lineError struct {
	Line  int    `json:"line"`
	Cmd   string `json:"cmd"`
	Error string `json:"error"`
}

func newAPI(ctx context.Context, rec *scan.Recorder, log *slog.Logger) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		rec:     rec,
		waiters: newWaiters(),
		sse: sse.NewServer(&sse.Options{
			Logger: slog.NewLogLogger(log.Handler(), slog.LevelDebug),
		}),
		events:     make(chan event, 256),
		log:        log,
		bufferSize: grbl.DefaultBufferSize,
	}

	r.HandleFunc("/api/move", a.move).Methods("POST")
	r.HandleFunc("/api/run", a.run).Methods("POST")
	r.HandleFunc("/api/state", a.state).Methods("GET")
	r.HandleFunc("/api/scan", a.scan).Methods("GET")
	r.HandleFunc("/api/scan", a.resetScan).Methods("DELETE")
	r.HandleFunc("/api/scan/height", a.height).Methods("GET")
	r.HandleFunc("/api/lidar/{action:start|stop}", a.lidar).Methods("POST")
	r.PathPrefix("/events/").Handler(a.sse)

	go a.publishLoop(ctx)

	return a
}

// Sink returns the EventSink the session must report to.
func (a *api) Sink() grbl.EventSink {
	return grbl.MultiSink{a.waiters, publisher{a: a}}
}

func (a *api) publishLoop(ctx context.Context) {
	for {
		var ev event
		select {
		case <-ctx.Done():
			return
		case ev = <-a.events:
		}
		data, err := json.Marshal(ev.data)
		if err != nil {
			a.log.Error("marshal event", "channel", ev.channel, "err", err)
			continue
		}
		a.sse.SendMessage(ev.channel, sse.SimpleMessage(string(data)))
	}
}

// publisher forwards session events to SSE clients.
type publisher struct{ a *api }

func (p publisher) publish(channel string, data interface{}) {
	select {
	case p.a.events <- event{channel: channel, data: data}:
	default:
		p.a.log.Warn("event dropped", "channel", channel)
	}
}

func (p publisher) Startup(version string) {
	p.publish("/events/startup", map[string]string{"version": version})
}
func (p publisher) ResponseOk(cmd grbl.Command) {
	p.publish("/events/response", responseEvent{Cmd: cmdText(cmd)})
}
func (p publisher) ResponseError(cmd grbl.Command, err error) {
	p.publish("/events/response", responseEvent{Cmd: cmdText(cmd), Error: err.Error()})
}
func (p publisher) PositionUpdate(pos coord.Point) { p.publish("/events/position", pos) }
func (p publisher) StateUpdate(stat grbl.Status)   { p.publish("/events/state", stat) }
func (p publisher) Disconnected()                  { p.publish("/events/disconnected", struct{}{}) }

func cmdText(cmd grbl.Command) string { return strings.TrimSpace(cmd.Encode()) }

// submit enqueues cmd and returns a channel for its outcome.
func (a *api) submit(ctx context.Context, cmd grbl.Command) (<-chan error, error) {
	ch := a.waiters.Add(cmd)
	err := a.m.Enqueue(ctx, cmd)
	if err != nil {
		a.waiters.Remove(cmd)
		return nil, err
	}
	return ch, nil
}

func wait(ctx context.Context, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func statusCode(err error) int {
	var re *grbl.ResponseError
	switch {
	case errors.As(err, &re):
		return http.StatusUnprocessableEntity
	case errors.Is(err, grbl.ErrCommandTooLong):
		return http.StatusBadRequest
	case errors.Is(err, grbl.ErrDeviceReset):
		return http.StatusConflict
	case errors.Is(err, grbl.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (a *api) fail(w http.ResponseWriter, req *http.Request, err error) {
	code := statusCode(err)
	if code >= 500 {
		a.log.Error("request failed", "path", req.URL.Path, "err", err)
	}
	http.Error(w, err.Error(), code)
}

func (a *api) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		a.log.Warn("encode response", "err", err)
	}
}

func (a *api) move(w http.ResponseWriter, req *http.Request) {
	var p grbl.MoveParams
	err := json.NewDecoder(req.Body).Decode(&p)
	if err != nil {
		http.Error(w, "invalid move: "+err.Error(), http.StatusBadRequest)
		return
	}
	if p.X == nil && p.Y == nil && p.Z == nil {
		http.Error(w, "move needs at least one of X, Y, Z", http.StatusBadRequest)
		return
	}

	ch, err := a.submit(req.Context(), grbl.NewLinearMove(p))
	if err != nil {
		a.fail(w, req, err)
		return
	}
	err = wait(req.Context(), ch)
	if err != nil {
		a.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// run streams a G-code program and reports every line the controller
// rejected.
func (a *api) run(w http.ResponseWriter, req *http.Request) {
	prog, err := readProgram(req.Body, a.bufferSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results := make([]<-chan error, 0, len(prog))
	for _, l := range prog {
		ch, err := a.submit(req.Context(), l.Cmd)
		if err != nil {
			a.fail(w, req, fmt.Errorf("line %d: %w", l.Line, err))
			return
		}
		results = append(results, ch)
	}

	failed := []lineError{}
	for i, ch := range results {
		err := wait(req.Context(), ch)
		var re *grbl.ResponseError
		switch {
		case err == nil:
		case errors.As(err, &re), errors.Is(err, grbl.ErrDeviceReset):
			failed = append(failed, lineError{Line: prog[i].Line, Cmd: cmdText(prog[i].Cmd), Error: err.Error()})
		default:
			a.fail(w, req, fmt.Errorf("line %d: %w", prog[i].Line, err))
			return
		}
	}

	code := http.StatusOK
	if len(failed) > 0 {
		code = http.StatusUnprocessableEntity
	}
	a.writeJSON(w, code, failed)
}

func (a *api) state(w http.ResponseWriter, req *http.Request) {
	stat, qs, err := a.m.Snapshot(req.Context())
	if err != nil {
		a.fail(w, req, err)
		return
	}
	a.writeJSON(w, http.StatusOK, struct {
		Status grbl.Status
		Queue  grbl.QueueStats
	}{stat, qs})
}

func (a *api) scan(w http.ResponseWriter, req *http.Request) {
	var err error
	switch req.FormValue("format") {
	case "cbor":
		w.Header().Set("Content-Type", "application/cbor")
		err = a.rec.WriteCBOR(w)
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		err = a.rec.WriteJSON(w)
	default:
		http.Error(w, "unknown format", http.StatusBadRequest)
		return
	}
	if err != nil {
		a.log.Warn("write scan", "err", err)
	}
}

func (a *api) resetScan(w http.ResponseWriter, req *http.Request) {
	a.rec.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) height(w http.ResponseWriter, req *http.Request) {
	x, err := strconv.ParseFloat(req.FormValue("x"), 64)
	if err != nil {
		http.Error(w, "invalid x", http.StatusBadRequest)
		return
	}
	y, err := strconv.ParseFloat(req.FormValue("y"), 64)
	if err != nil {
		http.Error(w, "invalid y", http.StatusBadRequest)
		return
	}

	m, err := a.rec.Mesh()
	if errors.Is(err, surface.ErrTooFewPoints) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		a.fail(w, req, err)
		return
	}
	z, ok := m.HeightAt(x, y)
	if !ok {
		http.Error(w, "point is outside the scanned area", http.StatusNotFound)
		return
	}
	a.writeJSON(w, http.StatusOK, coord.Point{X: x, Y: y, Z: z})
}

func (a *api) lidar(w http.ResponseWriter, req *http.Request) {
	if a.sensor == nil {
		http.Error(w, "no lidar configured", http.StatusNotFound)
		return
	}

	var err error
	switch mux.Vars(req)["action"] {
	case "start":
		err = a.sensor.Start()
	case "stop":
		err = a.sensor.Stop()
	}
	if err != nil {
		a.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
