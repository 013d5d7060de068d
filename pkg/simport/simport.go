// Package simport is an in-memory parallel port. It is useful for unit tests and
// to exercise the tool without hardware connected.
package simport

import (
	"fmt"
	"sync"

	"lptmon/pkg/port"
)

var _ port.IO = (*Port)(nil)

// WriteOp captures one write request for inspection within tests.
type WriteOp struct {
	Address uint16
	Value   byte
}

// Port emulates byte addressable i/o space. Reads return the last written value
// unless a script of sampled values has been queued for the address.
type Port struct {
	mu sync.Mutex

	mem     map[uint16]byte
	scripts map[uint16][]byte

	unavailable bool
	readErr     error
	writeErr    error

	reads  int
	writes []WriteOp
}

// New returns an available simulator with all addresses set to 0.
func New() *Port {
	return &Port{
		mem:     map[uint16]byte{},
		scripts: map[uint16][]byte{},
	}
}

// Set presets the byte at address.
func (p *Port) Set(address uint16, b byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mem[address] = b
}

// Get returns the current byte at address without counting a read.
func (p *Port) Get(address uint16) byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mem[address]
}

// Script queues values returned by successive reads of address.
// After the script is consumed the last value sticks.
func (p *Port) Script(address uint16, values ...byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[address] = append(p.scripts[address], values...)
}

// SetAvailable changes the result of Available.
func (p *Port) SetAvailable(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unavailable = !ok
}

// FailReads makes every following read return err (nil clears it).
func (p *Port) FailReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// FailWrites makes every following write return err (nil clears it).
func (p *Port) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// Reads is the number of successful reads.
func (p *Port) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

// Writes returns a copy of all successful write requests.
func (p *Port) Writes() []WriteOp {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]WriteOp(nil), p.writes...)
}

// Available implements port.IO.
func (p *Port) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.unavailable
}

// ReadPort implements port.IO.
func (p *Port) ReadPort(address uint16) (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unavailable {
		return 0, fmt.Errorf("read 0x%04X: %w", address, port.ErrHardwareUnavailable)
	}
	if p.readErr != nil {
		return 0, fmt.Errorf("read 0x%04X: %w", address, p.readErr)
	}

	if s := p.scripts[address]; len(s) > 0 {
		p.mem[address] = s[0]
		p.scripts[address] = s[1:]
	}

	p.reads++
	return p.mem[address], nil
}

// WritePort implements port.IO.
func (p *Port) WritePort(address uint16, b byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unavailable {
		return fmt.Errorf("write 0x%04X: %w", address, port.ErrHardwareUnavailable)
	}
	if p.writeErr != nil {
		return fmt.Errorf("write 0x%04X: %w", address, p.writeErr)
	}

	p.mem[address] = b
	p.writes = append(p.writes, WriteOp{Address: address, Value: b})
	return nil
}
