// Package monitor samples the registers of a parallel port in a polling loop
// and reports the logical pins which changed since the previous sample.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"lptmon/pkg/pins"
	"lptmon/pkg/port"

	"github.com/womat/debug"
)

// DefaultInterval is the pause between two samples.
const DefaultInterval = 10 * time.Millisecond

const (
	// Idle is the state of a monitor which hasn't been started.
	Idle StateType = iota
	// Sampling is the state while registers are read and compared.
	Sampling
	// Emitting is the state while change events are handed to the consumer.
	Emitting
	// Stopped is the terminal state after cancellation or a hardware failure.
	Stopped
)

// ErrStarted is returned if Run is called on a monitor which already ran.
var ErrStarted = errors.New("monitor already started")

// StateType represents the state of the polling loop.
type StateType int32

func (s StateType) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Emitting:
		return "emitting"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Event reports the transition of one pin between two consecutive samples.
type Event struct {
	Name     string    `json:"name"`
	Previous bool      `json:"previous"`
	Current  bool      `json:"current"`
	Cycle    uint64    `json:"cycle"`
	Time     time.Time `json:"time"`
}

func (e Event) String() string {
	return fmt.Sprintf("cycle %d: %s %v -> %v", e.Cycle, e.Name, pins.FormatState(e.Previous), pins.FormatState(e.Current))
}

// Handler receives change events in emission order.
// It's called from the polling goroutine and must return quickly,
// buffering or dropping is up to the consumer.
type Handler func(Event)

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval defines the pause between two samples.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithCatalog replaces the IEEE-1284 standard pin catalog.
func WithCatalog(c *pins.Catalog) Option {
	return func(m *Monitor) {
		if c != nil {
			m.catalog = c
		}
	}
}

// Monitor is the polling loop of one port.
type Monitor struct {
	io       port.IO
	desc     port.Descriptor
	catalog  *pins.Catalog
	interval time.Duration

	state int32

	// cl serializes the sampling cycles: read, diff and store.
	cl sync.Mutex
	// sl protects last and cycle.
	sl    sync.Mutex
	last  pins.Snapshot
	cycle uint64
}

// New initials a new monitor of port desc.
func New(io port.IO, desc port.Descriptor, opts ...Option) *Monitor {
	m := &Monitor{
		io:       io,
		desc:     desc,
		catalog:  pins.NewStandard(),
		interval: DefaultInterval,
		state:    int32(Idle),
	}

	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the current state of the polling loop.
func (m *Monitor) State() StateType {
	return StateType(atomic.LoadInt32(&m.state))
}

func (m *Monitor) setState(s StateType) {
	atomic.StoreInt32(&m.state, int32(s))
}

// Snapshot returns the snapshot retained from the last successful sample.
func (m *Monitor) Snapshot() pins.Snapshot {
	m.sl.Lock()
	defer m.sl.Unlock()
	return m.last
}

// Catalog returns the pin catalog used to decode the registers.
func (m *Monitor) Catalog() *pins.Catalog {
	return m.catalog
}

// Sample runs exactly one cycle: it reads every register of the port, decodes
// the pins and returns the changes against the retained snapshot.
// The first cycle (0) compares against an empty snapshot, so every pin which
// starts asserted is reported once.
// If a read fails, the retained snapshot and the cycle counter are unchanged.
// Concurrent calls are serialized, each one reads the hardware after the previous
// cycle was stored.
func (m *Monitor) Sample() ([]Event, error) {
	m.cl.Lock()
	defer m.cl.Unlock()

	raw := make(map[port.Register]byte, len(port.Registers))
	for _, r := range m.desc.Present() {
		address, _ := m.desc.Address(r)
		b, err := m.io.ReadPort(address)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", port.ErrHardwareUnavailable, err)
		}
		raw[r] = b
	}

	current := m.catalog.DecodeRegisters(raw)

	m.sl.Lock()
	defer m.sl.Unlock()

	events := Diff(m.last, current, m.cycle, time.Now())
	m.last = current
	m.cycle++
	return events, nil
}

// Run samples the port until ctx is cancelled. Cancellation isn't an error,
// Run returns nil. A hardware failure stops the loop and is returned.
func (m *Monitor) Run(ctx context.Context, h Handler) error {
	if !atomic.CompareAndSwapInt32(&m.state, int32(Idle), int32(Sampling)) {
		return ErrStarted
	}
	defer m.setState(Stopped)

	if !m.io.Available() {
		return fmt.Errorf("monitor %s: %w", m.desc.Name, port.ErrHardwareUnavailable)
	}

	debug.InfoLog.Printf("monitoring %v every %v", m.desc, m.interval)

	t := time.NewTimer(0)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			debug.DebugLog.Printf("monitor %s cancelled", m.desc.Name)
			return nil
		case <-t.C:
		}
		if ctx.Err() != nil {
			return nil
		}

		events, err := m.Sample()
		if err != nil {
			debug.ErrorLog.Printf("monitor %s: %v", m.desc.Name, err)
			return err
		}

		if len(events) > 0 {
			m.setState(Emitting)
			for _, e := range events {
				debug.TraceLog.Printf("monitor %s: %v", m.desc.Name, e)
				if h != nil {
					h(e)
				}
			}
			m.setState(Sampling)
		}

		t.Reset(m.interval)
	}
}

// Diff returns one event per pin of current whose state differs from prev,
// in the order of current. Pins missing in prev count as not asserted.
func Diff(prev, current pins.Snapshot, cycle uint64, ts time.Time) []Event {
	var events []Event
	for _, name := range current.Names() {
		c, _ := current.Get(name)
		p, _ := prev.Get(name)
		if p == c {
			continue
		}

		events = append(events, Event{
			Name:     name,
			Previous: p,
			Current:  c,
			Cycle:    cycle,
			Time:     ts,
		})
	}
	return events
}
