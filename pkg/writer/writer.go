// Package writer updates single pins or whole registers of a parallel port.
//
// A pin update always reads the register from the hardware first, so pins
// changed out of band are never overwritten with a stale value.
package writer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lptmon/pkg/pins"
	"lptmon/pkg/port"

	"github.com/womat/debug"
)

// Writer is the single owner of write access to one port.
// All operations of a Writer are serialized.
type Writer struct {
	io      port.IO
	desc    port.Descriptor
	catalog *pins.Catalog

	// wl serializes read-modify-write sequences.
	wl sync.Mutex
}

// New generates a writer for port desc. A nil catalog selects the IEEE-1284 standard table.
func New(io port.IO, desc port.Descriptor, catalog *pins.Catalog) *Writer {
	if catalog == nil {
		catalog = pins.NewStandard()
	}
	return &Writer{io: io, desc: desc, catalog: catalog}
}

// Check reports ErrHardwareUnavailable if the i/o primitive denies access.
func (w *Writer) Check() error {
	if !w.io.Available() {
		return fmt.Errorf("writer %s: %w", w.desc.Name, port.ErrHardwareUnavailable)
	}
	return nil
}

// Read returns the current raw byte of register r.
func (w *Writer) Read(r port.Register) (byte, error) {
	address, err := w.desc.Address(r)
	if err != nil {
		return 0, err
	}

	b, err := w.io.ReadPort(address)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", port.ErrHardwareUnavailable, err)
	}
	return b, nil
}

// WritePin sets the pin name of register r to asserted and leaves all other bits untouched.
// It returns the raw byte written to the register.
func (w *Writer) WritePin(r port.Register, name string, asserted bool) (byte, error) {
	address, err := w.desc.Address(r)
	if err != nil {
		return 0, err
	}
	pin, err := w.catalog.Find(r, name)
	if err != nil {
		return 0, err
	}

	w.wl.Lock()
	defer w.wl.Unlock()

	current, err := w.io.ReadPort(address)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", port.ErrHardwareUnavailable, err)
	}

	raw := pin.Apply(current, asserted)
	if err = w.io.WritePort(address, raw); err != nil {
		return current, fmt.Errorf("%w: %v", port.ErrHardwareUnavailable, err)
	}

	debug.DebugLog.Printf("%s: %s = %v (0x%02X -> 0x%02X)", w.desc.Name, name, asserted, current, raw)
	return raw, nil
}

// WritePinByName resolves the register of the pin from the catalog and calls WritePin.
func (w *Writer) WritePinByName(name string, asserted bool) (byte, error) {
	pin, ok := w.catalog.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", port.ErrUnknownPin, name)
	}
	return w.WritePin(pin.Register, name, asserted)
}

// WriteRegister overwrites register r with raw, bypassing per pin semantics.
func (w *Writer) WriteRegister(r port.Register, raw byte) error {
	address, err := w.desc.Address(r)
	if err != nil {
		return err
	}

	w.wl.Lock()
	defer w.wl.Unlock()

	if err = w.io.WritePort(address, raw); err != nil {
		return fmt.Errorf("%w: %v", port.ErrHardwareUnavailable, err)
	}

	debug.DebugLog.Printf("%s: %v = 0x%02X", w.desc.Name, r, raw)
	return nil
}

// SetAll writes 0xFF to register r.
func (w *Writer) SetAll(r port.Register) error {
	return w.WriteRegister(r, 0xFF)
}

// ClearAll writes 0x00 to register r.
func (w *Writer) ClearAll(r port.Register) error {
	return w.WriteRegister(r, 0x00)
}

// Sweep writes the values 0 to 255 to register r, pausing interval between two values.
// progress is called after each write. A cancelled ctx stops the sweep without error.
func (w *Writer) Sweep(ctx context.Context, r port.Register, interval time.Duration, progress func(byte)) error {
	for v := 0; v <= 0xFF; v++ {
		if ctx.Err() != nil {
			return nil
		}

		if err := w.WriteRegister(r, byte(v)); err != nil {
			return err
		}
		if progress != nil {
			progress(byte(v))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
	return nil
}
