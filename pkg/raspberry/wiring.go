// Package raspberry emulates the registers of a parallel port on gpio lines,
// e.g. to drive a printer port cable from a Raspberry Pi header.
package raspberry

import (
	"fmt"

	"lptmon/pkg/port"
)

// Unwired marks a register bit without gpio line.
const Unwired = -1

// Wiring binds register bits to gpio line offsets of one chip.
// Index i of a register slice is bit i of that register; missing entries are unwired.
// Data and control lines are requested as outputs, status lines as inputs.
type Wiring struct {
	Chip    string `yaml:"chip"`
	Data    []int  `yaml:"data"`
	Status  []int  `yaml:"status"`
	Control []int  `yaml:"control"`
	// Bias is the terminator of the status lines (pullup|pulldown|none).
	Bias string `yaml:"bias"`
}

// Lines returns the 8 line offsets of register r, Unwired for missing bits.
func (w Wiring) Lines(r port.Register) [8]int {
	var src []int
	switch r {
	case port.Data:
		src = w.Data
	case port.Status:
		src = w.Status
	case port.Control:
		src = w.Control
	}

	lines := [8]int{Unwired, Unwired, Unwired, Unwired, Unwired, Unwired, Unwired, Unwired}
	for i := 0; i < len(src) && i < 8; i++ {
		lines[i] = src[i]
	}
	return lines
}

// Validate checks that no register has more than 8 bits and no line offset is used twice.
func (w Wiring) Validate() error {
	used := map[int]string{}

	for _, r := range port.Registers {
		var n int
		switch r {
		case port.Data:
			n = len(w.Data)
		case port.Status:
			n = len(w.Status)
		case port.Control:
			n = len(w.Control)
		}
		if n > 8 {
			return fmt.Errorf("gpio wiring: %v has %d bits", r, n)
		}

		for bit, offset := range w.Lines(r) {
			if offset == Unwired {
				continue
			}
			if offset < 0 {
				return fmt.Errorf("gpio wiring: %v bit %d: invalid line %d", r, bit, offset)
			}
			where := fmt.Sprintf("%v bit %d", r, bit)
			if other, ok := used[offset]; ok {
				return fmt.Errorf("gpio wiring: line %d used by %s and %s", offset, other, where)
			}
			used[offset] = where
		}
	}

	switch w.Bias {
	case "", "pullup", "pulldown", "none":
	default:
		return fmt.Errorf("gpio wiring: invalid bias %q", w.Bias)
	}

	return nil
}
