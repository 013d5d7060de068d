//go:build linux

// Package devport accesses the i/o port space through the Linux /dev/port device.
// The process needs CAP_SYS_RAWIO (root) to open the device.
package devport

import (
	"fmt"
	"os"

	"lptmon/pkg/port"

	"golang.org/x/sys/unix"
)

var _ port.IO = (*Port)(nil)

// DefaultPath is the character device of the i/o port space.
const DefaultPath = "/dev/port"

// Port is the handler of an opened /dev/port device.
type Port struct {
	f *os.File
}

// Open opens the i/o port device, an empty path opens DefaultPath.
func Open(path string) (*Port, error) {
	if path == "" {
		path = DefaultPath
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrHardwareUnavailable, err)
	}
	return &Port{f: f}, nil
}

// Close releases the device.
func (p *Port) Close() error {
	if p == nil || p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f = nil
	return err
}

// Available implements port.IO.
func (p *Port) Available() bool {
	return p != nil && p.f != nil
}

// ReadPort implements port.IO. The file offset of /dev/port is the port address.
func (p *Port) ReadPort(address uint16) (byte, error) {
	if !p.Available() {
		return 0, port.ErrHardwareUnavailable
	}

	buf := make([]byte, 1)
	n, err := unix.Pread(int(p.f.Fd()), buf, int64(address))
	if err != nil {
		return 0, fmt.Errorf("read 0x%04X: %w", address, err)
	}
	if n != 1 {
		return 0, fmt.Errorf("read 0x%04X: unable to read port", address)
	}
	return buf[0], nil
}

// WritePort implements port.IO.
func (p *Port) WritePort(address uint16, b byte) error {
	if !p.Available() {
		return port.ErrHardwareUnavailable
	}

	n, err := unix.Pwrite(int(p.f.Fd()), []byte{b}, int64(address))
	if err != nil {
		return fmt.Errorf("write 0x%04X: %w", address, err)
	}
	if n != 1 {
		return fmt.Errorf("write 0x%04X: unable to write port", address)
	}
	return nil
}
