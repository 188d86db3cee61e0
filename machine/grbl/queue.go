package grbl

// Queue tracks commands waiting to be sent and commands sent but not yet
// acknowledged, against a local model of the controller's receive buffer.
//
// The controller acknowledges lines strictly in the order it received them,
// so the oldest in-flight command is always the one an `ok` or `error:`
// refers to. The free budget plus the encoded size of every in-flight command
// always equals the capacity.
type Queue struct {
	capacity int
	budget   int

	pending  []Command
	inFlight []Command
}

// NewQueue creates an empty Queue for a receive buffer of capacity bytes.
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: capacity, budget: capacity}
}

func (q *Queue) Capacity() int { return q.capacity }

// Budget returns the number of receive buffer bytes currently free.
func (q *Queue) Budget() int   { return q.budget }
func (q *Queue) Pending() int  { return len(q.pending) }
func (q *Queue) InFlight() int { return len(q.inFlight) }

// Enqueue appends c to the pending commands.
func (q *Queue) Enqueue(c Command) error {
	if len(c.Encode()) > q.capacity {
		return ErrCommandTooLong
	}
	q.pending = append(q.pending, c)
	return nil
}

// Service sends pending commands, oldest first, for as long as the next one
// fits in the remaining budget. It never skips past a command that does not
// fit.
//
// If write fails the command stays pending and the error is returned.
func (q *Queue) Service(write func(Command) error) (sent int, err error) {
	for len(q.pending) > 0 {
		c := q.pending[0]
		n := len(c.Encode())
		if n > q.budget {
			break
		}
		err = write(c)
		if err != nil {
			return sent, err
		}
		q.budget -= n
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.inFlight = append(q.inFlight, c)
		sent++
	}
	if len(q.pending) == 0 {
		q.pending = nil
	}
	return sent, nil
}

// Resolve removes the oldest in-flight command and returns its buffer space
// to the budget. It is used for both `ok` and `error:` responses since the
// controller frees the line either way.
//
// It returns false if nothing is in flight.
func (q *Queue) Resolve() (Command, bool) {
	if len(q.inFlight) == 0 {
		return nil, false
	}
	c := q.inFlight[0]
	q.inFlight[0] = nil
	q.inFlight = q.inFlight[1:]
	q.budget += len(c.Encode())
	return c, true
}

// DropInFlight forgets every in-flight command and restores the full budget,
// leaving pending commands in place. Used when the controller resets and
// loses its receive buffer.
func (q *Queue) DropInFlight() []Command {
	dropped := q.inFlight
	q.inFlight = nil
	q.budget = q.capacity
	return dropped
}

// Discard empties the queue.
func (q *Queue) Discard() (pending, inFlight []Command) {
	pending, inFlight = q.pending, q.inFlight
	q.pending = nil
	q.inFlight = nil
	q.budget = q.capacity
	return pending, inFlight
}
