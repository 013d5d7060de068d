package pins

import (
	"encoding/json"
	"fmt"

	"lptmon/pkg/port"
)

// Snapshot is the decoded state of pins at one sampling instant.
// A snapshot is never modified after it has been built.
type Snapshot struct {
	// names holds the logical names in catalog order.
	names []string
	state map[string]bool
}

// Get returns the asserted state of the pin and whether the pin is part of the snapshot.
func (s Snapshot) Get(name string) (asserted, ok bool) {
	asserted, ok = s.state[name]
	return
}

// Names returns the logical names of the snapshot in catalog order.
func (s Snapshot) Names() []string {
	return append([]string(nil), s.names...)
}

// Len is the number of pins in the snapshot.
func (s Snapshot) Len() int {
	return len(s.names)
}

// MarshalJSON encodes the snapshot as an object of booleans.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.state)
}

// Decode returns the partial snapshot of register r. Bits that don't belong
// to a catalog pin are ignored, so every byte value decodes.
func (c *Catalog) Decode(r port.Register, raw byte) Snapshot {
	return c.DecodeRegisters(map[port.Register]byte{r: raw})
}

// DecodeAll merges the data, status and control register into one snapshot.
func (c *Catalog) DecodeAll(data, status, control byte) Snapshot {
	return c.DecodeRegisters(map[port.Register]byte{
		port.Data:    data,
		port.Status:  status,
		port.Control: control,
	})
}

// DecodeRegisters decodes the pins of all registers contained in raw.
// Pins of registers missing in raw are not part of the snapshot.
func (c *Catalog) DecodeRegisters(raw map[port.Register]byte) Snapshot {
	s := Snapshot{state: make(map[string]bool, len(c.pins))}
	for _, p := range c.pins {
		b, ok := raw[p.Register]
		if !ok {
			continue
		}
		s.names = append(s.names, p.Name)
		s.state[p.Name] = p.Asserted(b)
	}
	return s
}

// Find returns the pin name defined on register r.
func (c *Catalog) Find(r port.Register, name string) (Pin, error) {
	p, ok := c.Lookup(name)
	if !ok || p.Register != r {
		return Pin{}, fmt.Errorf("%w: %s on %v register", port.ErrUnknownPin, name, r)
	}
	return p, nil
}

// EncodeUpdate computes the new raw byte of register r to set pin name to asserted
// (read-modify-write). Only the pin's bit differs between raw and the result.
func (c *Catalog) EncodeUpdate(raw byte, r port.Register, name string, asserted bool) (byte, error) {
	p, err := c.Find(r, name)
	if err != nil {
		return raw, err
	}
	return p.Apply(raw, asserted), nil
}
