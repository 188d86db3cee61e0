// Package scan pairs range sensor readings with the machine position at the
// time they arrive, producing a point cloud of the scanned surface.
package scan

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/mastercactapus/gscan/coord"
	"github.com/mastercactapus/gscan/lidar"
	"github.com/mastercactapus/gscan/machine/grbl"
	"github.com/mastercactapus/gscan/surface"
)

// Sample is a surface point. Z is the sensor Z less the measured distance.
type Sample struct {
	coord.Point
	Timestamp uint64  `json:"ts"`
	Distance  float64 `json:"dist"`
}

// Recorder collects Samples. It is safe for concurrent use, since the
// machine and sensor report from separate goroutines.
type Recorder struct {
	log *slog.Logger

	mx      sync.Mutex
	pos     coord.Point
	hasPos  bool
	samples []Sample
	dropped int
}

func NewRecorder(log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{log: log}
}

// Machine returns the EventSink that feeds machine positions in.
func (r *Recorder) Machine() grbl.EventSink { return machineSink{r: r} }

// Sensor returns the lidar Handler that feeds readings in.
func (r *Recorder) Sensor() lidar.Handler { return sensorHandler{r: r} }

type machineSink struct {
	grbl.NopSink
	r *Recorder
}

func (m machineSink) PositionUpdate(p coord.Point) {
	m.r.mx.Lock()
	m.r.pos = p
	m.r.hasPos = true
	m.r.mx.Unlock()
}

// forget clears the position until the next report. A restarted controller
// has lost its position just like a closed connection has.
func (m machineSink) forget() {
	m.r.mx.Lock()
	m.r.hasPos = false
	m.r.mx.Unlock()
}
func (m machineSink) Startup(string) { m.forget() }
func (m machineSink) Disconnected()  { m.forget() }

type sensorHandler struct{ r *Recorder }

func (s sensorHandler) Reading(rd lidar.Reading) { s.r.add(rd) }
func (s sensorHandler) Disconnected()            { s.r.log.Info("sensor disconnected") }

func (r *Recorder) add(rd lidar.Reading) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if !r.hasPos {
		r.dropped++
		return
	}
	p := r.pos
	p.Z -= rd.Distance
	r.samples = append(r.samples, Sample{Point: p, Timestamp: rd.Timestamp, Distance: rd.Distance})
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mx.Lock()
	defer r.mx.Unlock()
	res := make([]Sample, len(r.samples))
	copy(res, r.samples)
	return res
}

// Dropped returns the number of readings discarded because no machine
// position was known yet.
func (r *Recorder) Dropped() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.dropped
}

func (r *Recorder) Reset() {
	r.mx.Lock()
	r.samples = nil
	r.dropped = 0
	r.mx.Unlock()
}

func (r *Recorder) Points() []coord.Point {
	s := r.Samples()
	res := make([]coord.Point, len(s))
	for i := range s {
		res[i] = s[i].Point
	}
	return res
}

// Mesh triangulates the recorded samples.
func (r *Recorder) Mesh() (*surface.Mesh, error) {
	return surface.NewMesh(r.Points())
}

func (r *Recorder) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(r.Samples())
}

// WriteCBOR writes the samples as a CBOR array, which is considerably
// smaller than JSON for large scans.
func (r *Recorder) WriteCBOR(w io.Writer) error {
	return cbor.NewEncoder(w).Encode(r.Samples())
}
