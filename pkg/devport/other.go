//go:build !linux

package devport

import (
	"fmt"
	"runtime"

	"lptmon/pkg/port"
)

var _ port.IO = (*Port)(nil)

// DefaultPath is the character device of the i/o port space.
const DefaultPath = "/dev/port"

// Port is a placeholder, /dev/port only exists on linux.
type Port struct{}

// Open always fails on this platform.
func Open(path string) (*Port, error) {
	return nil, fmt.Errorf("%w: /dev/port isn't supported on %s", port.ErrHardwareUnavailable, runtime.GOOS)
}

// Close releases the device.
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
