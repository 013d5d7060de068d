//go:build !linux

package raspberry

import (
	"fmt"
	"runtime"

	"lptmon/pkg/port"
)

var _ port.IO = (*Port)(nil)

// DefaultChip is the gpio chip of the Raspberry Pi header.
const DefaultChip = "gpiochip0"

// Chip is a placeholder, gpio character devices only exist on linux.
type Chip struct{}

// Port is a placeholder, gpio character devices only exist on linux.
type Port struct{}

// Open always fails on this platform.
func Open(name string) (*Chip, error) {
	return nil, fmt.Errorf("%w: gpio isn't supported on %s", port.ErrHardwareUnavailable, runtime.GOOS)
}

// Close releases the Chip.
func (c *Chip) Close() error {
	return nil
}

// NewPort always fails on this platform.
func (c *Chip) NewPort(base uint16, w Wiring) (*Port, error) {
	return nil, port.ErrHardwareUnavailable
}

// Close releases all requested lines.
func (p *Port) Close() error {
	return nil
}

// Available implements port.IO.
func (p *Port) Available() bool {
	return false
}

// ReadPort implements port.IO.
func (p *Port) ReadPort(address uint16) (byte, error) {
	return 0, port.ErrHardwareUnavailable
}

// WritePort implements port.IO.
func (p *Port) WritePort(address uint16, b byte) error {
	return port.ErrHardwareUnavailable
}
