package app

import (
	"context"
	"fmt"
	"time"

	"lptmon/pkg/monitor"
	"lptmon/pkg/port"

	"github.com/womat/debug"
)

// Operation is an action on the port of the session.
type Operation int

const (
	// ReadWholeRange reports the raw bytes of all addresses of the port whenever one changes.
	ReadWholeRange Operation = iota
	// ReadPins reports the change events of the pins.
	ReadPins
	// WriteDataSweep writes 0 to 255 to the data register.
	WriteDataSweep
	SetAllDataPins
	ClearAllDataPins
	SetAllControlPins
	ClearAllControlPins
	// SetDataPin and SetControlPin change a single pin.
	SetDataPin
	SetControlPin
)

var operationNames = [...]string{
	ReadWholeRange:      "read-whole-range",
	ReadPins:            "read-pins",
	WriteDataSweep:      "write-data-sweep",
	SetAllDataPins:      "set-all-data-pins",
	ClearAllDataPins:    "clear-all-data-pins",
	SetAllControlPins:   "set-all-control-pins",
	ClearAllControlPins: "clear-all-control-pins",
	SetDataPin:          "set-data-pin",
	SetControlPin:       "set-control-pin",
}

func (o Operation) String() string {
	if o >= 0 && int(o) < len(operationNames) {
		return operationNames[o]
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// Request holds the operation and its arguments.
type Request struct {
	Operation Operation

	// Pin and Asserted are the arguments of SetDataPin and SetControlPin.
	Pin      string
	Asserted bool

	// Interval is the sampling interval of the read operations and the pause
	// between two values of WriteDataSweep, 0 selects the configured interval.
	Interval time.Duration

	OnChange monitor.Handler
	OnRange  monitor.RangeHandler
	OnSweep  func(byte)
}

// Execute runs the operation of req on the port of the session.
// The read operations and WriteDataSweep block until ctx is cancelled or they are done.
func (app *App) Execute(ctx context.Context, req Request) error {
	if app.io == nil {
		return fmt.Errorf("%v: %w", req.Operation, port.ErrHardwareUnavailable)
	}

	interval := req.Interval
	if interval <= 0 {
		interval = app.config.Interval
	}

	debug.DebugLog.Printf("execute %v on %s", req.Operation, app.desc.Name)

	switch req.Operation {
	case ReadWholeRange:
		h := req.OnRange
		if h == nil {
			h = func(uint64, []byte) {}
		}
		return monitor.WatchRange(ctx, app.io, app.desc, interval, h)
	case ReadPins:
		m := monitor.New(app.io, app.desc, monitor.WithInterval(interval), monitor.WithCatalog(app.catalog))
		return m.Run(ctx, req.OnChange)
	case WriteDataSweep:
		return app.writer.Sweep(ctx, port.Data, interval, req.OnSweep)
	case SetAllDataPins:
		return app.writer.SetAll(port.Data)
	case ClearAllDataPins:
		return app.writer.ClearAll(port.Data)
	case SetAllControlPins:
		return app.writer.SetAll(port.Control)
	case ClearAllControlPins:
		return app.writer.ClearAll(port.Control)
	case SetDataPin:
		_, err := app.writer.WritePin(port.Data, req.Pin, req.Asserted)
		return err
	case SetControlPin:
		_, err := app.writer.WritePin(port.Control, req.Pin, req.Asserted)
		return err
	}

	return fmt.Errorf("unknown operation %v", req.Operation)
}

// PinOperation returns the operation which drives pin name.
// Status pins are inputs and can't be driven.
func (app *App) PinOperation(name string) (Operation, error) {
	pin, ok := app.catalog.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", port.ErrUnknownPin, name)
	}

	switch pin.Register {
	case port.Data:
		return SetDataPin, nil
	case port.Control:
		return SetControlPin, nil
	}
	return 0, fmt.Errorf("%w: %s is an input of the %v register", port.ErrInvalidRegister, name, pin.Register)
}
