// Package pins translates between raw parallel port register bytes and named,
// polarity corrected logical pin states.
//
// The pin catalog is plain data. A Catalog validates the table once and every
// decode/encode operation queries it, so no caller needs to know the bit
// layout of a register.
package pins

import (
	"fmt"
	"strings"

	"lptmon/pkg/port"
)

// Polarity defines which register bit value represents an asserted pin.
// The zero value is Unspecified, a catalog rejects pins without polarity.
type Polarity int

const (
	Unspecified Polarity = iota
	// ActiveHigh pins are asserted if their register bit is 1.
	ActiveHigh
	// ActiveLow pins are asserted if their register bit is 0.
	ActiveLow
)

func (p Polarity) String() string {
	switch p {
	case ActiveHigh:
		return "active-high"
	case ActiveLow:
		return "active-low"
	}
	return "unspecified"
}

// ParsePolarity accepts high|low|active-high|active-low.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "active-high", "activehigh":
		return ActiveHigh, nil
	case "low", "active-low", "activelow":
		return ActiveLow, nil
	}
	return Unspecified, fmt.Errorf("invalid polarity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Polarity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Polarity) UnmarshalText(b []byte) (err error) {
	*p, err = ParsePolarity(string(b))
	return
}

// UnmarshalYAML accepts the values of ParsePolarity.
func (p *Polarity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}

// Pin is one logical signal, backed by one bit of one register.
type Pin struct {
	Register port.Register `yaml:"register" json:"register"`
	Bit      uint          `yaml:"bit" json:"bit"`
	Polarity Polarity      `yaml:"polarity" json:"polarity"`
	Name     string        `yaml:"name" json:"name"`
	// Connector is the DB-25 pin number, 0 if unknown.
	Connector int `yaml:"connector" json:"connector,omitempty"`
}

// Mask is the bit mask of the pin within its register.
func (p Pin) Mask() byte {
	return 1 << p.Bit
}

// Asserted decodes the logical state of the pin from the raw register byte.
func (p Pin) Asserted(raw byte) bool {
	set := raw&p.Mask() != 0
	if p.Polarity == ActiveLow {
		return !set
	}
	return set
}

// Apply returns raw with the pin's bit changed to represent asserted.
// All other bits are left untouched.
func (p Pin) Apply(raw byte, asserted bool) byte {
	if asserted == (p.Polarity == ActiveHigh) {
		return raw | p.Mask()
	}
	return raw &^ p.Mask()
}

func (p Pin) String() string {
	return fmt.Sprintf("%s [%v bit %d, %v]", p.Name, p.Register, p.Bit, p.Polarity)
}

// Catalog is a validated, immutable pin table.
type Catalog struct {
	pins   []Pin
	byName map[string]int
}

// NewCatalog validates the pin table:
//  * bit indices are 0..7
//  * the polarity is specified
//  * bit indices are disjoint per register
//  * logical names are unique and not empty
func NewCatalog(table []Pin) (*Catalog, error) {
	c := &Catalog{
		pins:   make([]Pin, len(table)),
		byName: make(map[string]int, len(table)),
	}
	copy(c.pins, table)

	used := map[port.Register]byte{}
	for i, p := range c.pins {
		if p.Name == "" {
			return nil, fmt.Errorf("pin %d: empty name", i)
		}
		if p.Polarity != ActiveHigh && p.Polarity != ActiveLow {
			return nil, fmt.Errorf("pin %s: polarity not specified", p.Name)
		}
		if p.Bit > 7 {
			return nil, fmt.Errorf("pin %s: bit index %d out of range", p.Name, p.Bit)
		}
		if p.Register < port.Data || p.Register > port.Control {
			return nil, fmt.Errorf("pin %s: %w %v", p.Name, port.ErrInvalidRegister, p.Register)
		}
		if _, ok := c.byName[p.Name]; ok {
			return nil, fmt.Errorf("pin %s: duplicate name", p.Name)
		}
		if used[p.Register]&p.Mask() != 0 {
			return nil, fmt.Errorf("pin %s: %v bit %d already defined", p.Name, p.Register, p.Bit)
		}

		used[p.Register] |= p.Mask()
		c.byName[p.Name] = i
	}

	return c, nil
}

// Standard is the IEEE-1284 SPP signal table. The polarity is given at register
// level: the status BUSY bit and the control nSTROBE, nAUTOFD and nSELECTIN bits
// are inverted by the port hardware.
//  Status bits 0..2 and control bits 4..7 don't represent connector pins.
var Standard = []Pin{
	{Register: port.Data, Bit: 0, Polarity: ActiveHigh, Name: "D0", Connector: 2},
	{Register: port.Data, Bit: 1, Polarity: ActiveHigh, Name: "D1", Connector: 3},
	{Register: port.Data, Bit: 2, Polarity: ActiveHigh, Name: "D2", Connector: 4},
	{Register: port.Data, Bit: 3, Polarity: ActiveHigh, Name: "D3", Connector: 5},
	{Register: port.Data, Bit: 4, Polarity: ActiveHigh, Name: "D4", Connector: 6},
	{Register: port.Data, Bit: 5, Polarity: ActiveHigh, Name: "D5", Connector: 7},
	{Register: port.Data, Bit: 6, Polarity: ActiveHigh, Name: "D6", Connector: 8},
	{Register: port.Data, Bit: 7, Polarity: ActiveHigh, Name: "D7", Connector: 9},

	{Register: port.Status, Bit: 3, Polarity: ActiveLow, Name: "nERROR", Connector: 15},
	{Register: port.Status, Bit: 4, Polarity: ActiveHigh, Name: "SELECT", Connector: 13},
	{Register: port.Status, Bit: 5, Polarity: ActiveHigh, Name: "PAPEROUT", Connector: 12},
	{Register: port.Status, Bit: 6, Polarity: ActiveLow, Name: "nACK", Connector: 10},
	{Register: port.Status, Bit: 7, Polarity: ActiveLow, Name: "BUSY", Connector: 11},

	{Register: port.Control, Bit: 0, Polarity: ActiveHigh, Name: "nSTROBE", Connector: 1},
	{Register: port.Control, Bit: 1, Polarity: ActiveHigh, Name: "nAUTOFD", Connector: 14},
	{Register: port.Control, Bit: 2, Polarity: ActiveLow, Name: "nINIT", Connector: 16},
	{Register: port.Control, Bit: 3, Polarity: ActiveHigh, Name: "nSELECTIN", Connector: 17},
}

// NewStandard returns the catalog of the IEEE-1284 SPP signal table.
func NewStandard() *Catalog {
	c, err := NewCatalog(Standard)
	if err != nil {
		panic("pins: invalid standard catalog: " + err.Error())
	}
	return c
}

// Pins returns a copy of the pin table in catalog order.
func (c *Catalog) Pins() []Pin {
	return append([]Pin(nil), c.pins...)
}

// Lookup finds a pin by logical name.
func (c *Catalog) Lookup(name string) (Pin, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Pin{}, false
	}
	return c.pins[i], true
}

// OnRegister returns the pins of register r in catalog order.
func (c *Catalog) OnRegister(r port.Register) []Pin {
	var p []Pin
	for _, pin := range c.pins {
		if pin.Register == r {
			p = append(p, pin)
		}
	}
	return p
}
