//go:build linux

package raspberry

import (
	"fmt"
	"sync"

	"lptmon/pkg/port"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
)

var _ port.IO = (*Port)(nil)

// DefaultChip is the gpio chip of the Raspberry Pi header.
const DefaultChip = "gpiochip0"

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Port emulates the registers of a parallel port on the requested lines of a chip.
type Port struct {
	base  uint16
	lines [3][8]*gpiod.Line

	// pl protects shadow and closed.
	pl sync.Mutex
	// shadow holds the last written register values, it supplies the unwired bits.
	shadow [3]byte
	closed bool
}

// Open opens a GPIO character device, an empty name opens DefaultChip.
func Open(name string) (*Chip, error) {
	if name == "" {
		name = DefaultChip
	}

	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrHardwareUnavailable, err)
	}
	return &Chip{gpiodChip: c}, nil
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently (see Port.Close).
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// NewPort requests the lines of the wiring. If granted, control is maintained until the Port is closed.
// The registers are addressed like a parallel port at base, base+1 and base+2.
func (c *Chip) NewPort(base uint16, w Wiring) (*Port, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	p := &Port{base: base}

	for _, r := range port.Registers {
		for bit, offset := range w.Lines(r) {
			if offset == Unwired {
				continue
			}

			l, err := c.requestLine(r, offset, w.Bias)
			if err != nil {
				_ = p.Close()
				return nil, fmt.Errorf("can't request line %d for %v bit %d: %w", offset, r, bit, err)
			}

			debug.DebugLog.Printf("gpio line %d bound to %v bit %d", offset, r, bit)
			p.lines[r][bit] = l
		}
	}

	return p, nil
}

// requestLine requests status lines as inputs with the terminator bias,
// data and control lines as outputs driven low.
func (c *Chip) requestLine(r port.Register, offset int, bias string) (*gpiod.Line, error) {
	if r != port.Status {
		return c.gpiodChip.RequestLine(offset, gpiod.AsOutput(0))
	}

	switch bias {
	case "pullup":
		return c.gpiodChip.RequestLine(offset, gpiod.AsInput, gpiod.WithPullUp)
	case "pulldown":
		return c.gpiodChip.RequestLine(offset, gpiod.AsInput, gpiod.WithPullDown)
	default:
		return c.gpiodChip.RequestLine(offset, gpiod.AsInput)
	}
}

// Close releases all requested lines.
func (p *Port) Close() error {
	p.pl.Lock()
	defer p.pl.Unlock()

	var err error
	for r := range p.lines {
		for bit, l := range p.lines[r] {
			if l == nil {
				continue
			}
			if e := l.Close(); e != nil && err == nil {
				err = e
			}
			p.lines[r][bit] = nil
		}
	}

	p.closed = true
	return err
}

// Available implements port.IO.
func (p *Port) Available() bool {
	p.pl.Lock()
	defer p.pl.Unlock()
	return !p.closed
}

func (p *Port) register(address uint16) (port.Register, error) {
	if address < p.base || address > p.base+uint16(port.Control) {
		return 0, fmt.Errorf("%w: address 0x%04X isn't wired", port.ErrInvalidRegister, address)
	}
	return port.Register(address - p.base), nil
}

// ReadPort implements port.IO. Wired bits read the line level, unwired bits
// return the last written value.
func (p *Port) ReadPort(address uint16) (byte, error) {
	r, err := p.register(address)
	if err != nil {
		return 0, err
	}

	p.pl.Lock()
	defer p.pl.Unlock()

	if p.closed {
		return 0, port.ErrHardwareUnavailable
	}

	b := p.shadow[r]
	for bit, l := range p.lines[r] {
		if l == nil {
			continue
		}

		v, err := l.Value()
		if err != nil {
			return 0, fmt.Errorf("read %v bit %d: %w", r, bit, err)
		}

		if v != 0 {
			b |= 1 << uint(bit)
		} else {
			b &^= 1 << uint(bit)
		}
	}
	return b, nil
}

// WritePort implements port.IO. Status lines are inputs, their bits are not driven.
func (p *Port) WritePort(address uint16, b byte) error {
	r, err := p.register(address)
	if err != nil {
		return err
	}

	p.pl.Lock()
	defer p.pl.Unlock()

	if p.closed {
		return port.ErrHardwareUnavailable
	}

	if r != port.Status {
		for bit, l := range p.lines[r] {
			if l == nil {
				continue
			}
			if err = l.SetValue(int(b>>uint(bit)) & 1); err != nil {
				return fmt.Errorf("write %v bit %d: %w", r, bit, err)
			}
		}
	}

	p.shadow[r] = b
	return nil
}
