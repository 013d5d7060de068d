// Package port holds the definition of a physical parallel port
package port

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHardwareUnavailable is returned if the i/o primitive can't access the port.
	ErrHardwareUnavailable = errors.New("hardware unavailable")
	// ErrUnknownPin is returned if a logical pin name isn't defined on a register.
	ErrUnknownPin = errors.New("unknown pin")
	// ErrInvalidRegister is returned if a register isn't present on the port.
	ErrInvalidRegister = errors.New("invalid register")
)

// IO is the byte level i/o primitive of the hardware.
type IO interface {
	// ReadPort reads one byte at the absolute hardware address.
	ReadPort(address uint16) (byte, error)
	// WritePort writes one byte to the absolute hardware address.
	WritePort(address uint16, b byte) error
	// Available reports whether access to the hardware is currently permitted.
	Available() bool
}

// Register identifies one addressable byte of the port.
type Register int

const (
	// Data is the register at base+0 (D0..D7).
	Data Register = iota
	// Status is the register at base+1.
	Status
	// Control is the register at base+2.
	Control
)

// Registers lists all named registers in address order.
var Registers = []Register{Data, Status, Control}

func (r Register) String() string {
	switch r {
	case Data:
		return "data"
	case Status:
		return "status"
	case Control:
		return "control"
	}
	return fmt.Sprintf("register(%d)", int(r))
}

// ParseRegister converts a register name (data|status|control) to a Register.
func ParseRegister(s string) (Register, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "data", "d":
		return Data, nil
	case "status", "s":
		return Status, nil
	case "control", "c":
		return Control, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRegister, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Register) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Register) UnmarshalText(b []byte) error {
	v, err := ParseRegister(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// UnmarshalYAML allows registers to be written by name in the configuration file.
func (r *Register) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return r.UnmarshalText([]byte(s))
}

// Descriptor is the immutable identity of one physical parallel port.
type Descriptor struct {
	Name          string `json:"name"`
	BaseAddress   uint16 `json:"base"`
	RegisterCount int    `json:"registers"`
}

// NewDescriptor validates and returns a port descriptor.
func NewDescriptor(name string, base uint16, count int) (Descriptor, error) {
	d := Descriptor{Name: name, BaseAddress: base, RegisterCount: count}
	return d, d.Validate()
}

// FromRange builds a descriptor from an address range (first and last address included).
func FromRange(name string, from, to uint16) (Descriptor, error) {
	if to < from {
		return Descriptor{}, fmt.Errorf("invalid address range 0x%04X - 0x%04X", from, to)
	}
	return NewDescriptor(name, from, int(to-from)+1)
}

// Validate checks the invariants of the descriptor.
func (d Descriptor) Validate() error {
	if d.RegisterCount < 1 {
		return fmt.Errorf("port %s: register count %d < 1", d.Name, d.RegisterCount)
	}
	if int(d.BaseAddress)+d.RegisterCount-1 > 0xFFFF {
		return fmt.Errorf("port %s: address range exceeds 0xFFFF", d.Name)
	}
	return nil
}

// Has reports whether the register is present on the port.
func (d Descriptor) Has(r Register) bool {
	return r >= Data && r <= Control && int(r) < d.RegisterCount
}

// Address returns the absolute hardware address of register r.
func (d Descriptor) Address(r Register) (uint16, error) {
	if !d.Has(r) {
		return 0, fmt.Errorf("%w: %v not present on %s", ErrInvalidRegister, r, d.Name)
	}
	return d.BaseAddress + uint16(r), nil
}

// Last is the highest addressable register of the port.
func (d Descriptor) Last() uint16 {
	return d.BaseAddress + uint16(d.RegisterCount) - 1
}

// Present returns the named registers of the port in address order.
func (d Descriptor) Present() []Register {
	var r []Register
	for _, reg := range Registers {
		if d.Has(reg) {
			r = append(r, reg)
		}
	}
	return r
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (0x%04X - 0x%04X)", d.Name, d.BaseAddress, d.Last())
}
