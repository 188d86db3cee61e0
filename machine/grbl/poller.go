package grbl

import "time"

// Poller produces status query ticks at a fixed interval until stopped.
// A stopped Poller is never restarted.
type Poller struct {
	t *time.Ticker
}

// NewPoller starts ticking immediately. A non-positive interval returns a
// Poller that never ticks.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		return &Poller{}
	}
	return &Poller{t: time.NewTicker(interval)}
}

// C returns the tick channel, or nil once stopped so that a select case
// on it never fires.
func (p *Poller) C() <-chan time.Time {
	if p.t == nil {
		return nil
	}
	return p.t.C
}

func (p *Poller) Stop() {
	if p.t == nil {
		return
	}
	p.t.Stop()
	p.t = nil
}
