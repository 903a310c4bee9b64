package sync

import (
	"sync"
	"time"
)

// State enumerates the lifecycle of the last full reconciliation.
type State int

const (
	StateIdle State = iota
	StateSyncing
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Status is the engine's externally visible state. Message is set only when
// State is StateError; LastSyncAt is nil until a reconciliation succeeds.
type Status struct {
	State      State
	Message    string
	LastSyncAt *time.Time
}

// statusCell is a single-writer state value with buffered subscribers. The
// engine is the only writer; subscribers always observe the latest value and
// may miss intermediate ones.
type statusCell struct {
	mu   sync.Mutex
	cur  Status
	subs map[int]chan Status
	next int
}

func newStatusCell() *statusCell {
	return &statusCell{subs: make(map[int]chan Status)}
}

func (c *statusCell) get() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *statusCell) set(state State, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur.State = state
	c.cur.Message = msg
	c.broadcast()
}

func (c *statusCell) succeed(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = Status{State: StateSuccess, LastSyncAt: &at}
	c.broadcast()
}

// broadcast pushes the current value to every subscriber, replacing an unread
// value rather than blocking. Callers must hold mu.
func (c *statusCell) broadcast() {
	for _, ch := range c.subs {
		select {
		case ch <- c.cur:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- c.cur
		}
	}
}

// subscribe registers a listener. The channel immediately carries the current
// status. The returned func removes the subscription.
func (c *statusCell) subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = ch
	ch <- c.cur
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
	return ch, cancel
}
