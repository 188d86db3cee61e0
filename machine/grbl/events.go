package grbl

import "github.com/mastercactapus/gscan/coord"

// EventSink receives session notifications.
//
// Methods are called from the session goroutine and must not block.
type EventSink interface {
	Startup(version string)
	ResponseOk(cmd Command)
	ResponseError(cmd Command, err error)
	PositionUpdate(pos coord.Point)
	StateUpdate(stat Status)
	Disconnected()
}

// NopSink ignores every event. Embed it to implement only some methods.
type NopSink struct{}

func (NopSink) Startup(string)               {}
func (NopSink) ResponseOk(Command)           {}
func (NopSink) ResponseError(Command, error) {}
func (NopSink) PositionUpdate(coord.Point)   {}
func (NopSink) StateUpdate(Status)           {}
func (NopSink) Disconnected()                {}

// MultiSink delivers every event to each sink in order.
type MultiSink []EventSink

func (m MultiSink) Startup(version string) {
	for _, s := range m {
		s.Startup(version)
	}
}
func (m MultiSink) ResponseOk(cmd Command) {
	for _, s := range m {
		s.ResponseOk(cmd)
	}
}
func (m MultiSink) ResponseError(cmd Command, err error) {
	for _, s := range m {
		s.ResponseError(cmd, err)
	}
}
func (m MultiSink) PositionUpdate(pos coord.Point) {
	for _, s := range m {
		s.PositionUpdate(pos)
	}
}
func (m MultiSink) StateUpdate(stat Status) {
	for _, s := range m {
		s.StateUpdate(stat)
	}
}
func (m MultiSink) Disconnected() {
	for _, s := range m {
		s.Disconnected()
	}
}
