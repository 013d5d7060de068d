package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"lptmon/pkg/pins"
	"lptmon/pkg/port"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// pinResp is the state of one pin.
type pinResp struct {
	Name      string        `json:"name"`
	Register  port.Register `json:"register"`
	Bit       uint          `json:"bit"`
	Connector int           `json:"connector,omitempty"`
	Asserted  bool          `json:"asserted"`
	Raw       string        `json:"raw"`
}

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// webError maps the error taxonomy of the port to a http status.
func webError(ctx *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, port.ErrUnknownPin):
		code = http.StatusNotFound
	case errors.Is(err, port.ErrInvalidRegister):
		code = http.StatusBadRequest
	case errors.Is(err, port.ErrHardwareUnavailable):
		code = http.StatusServiceUnavailable
	}

	debug.ErrorLog.Printf("web request %s %s: %v", ctx.Method(), ctx.Path(), err)
	return ctx.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// readRegisters reads all registers of the port from the hardware.
func (app *App) readRegisters() (map[port.Register]byte, error) {
	raw := make(map[port.Register]byte, len(port.Registers))
	for _, r := range app.desc.Present() {
		b, err := app.writer.Read(r)
		if err != nil {
			return nil, err
		}
		raw[r] = b
	}
	return raw, nil
}

// Read reads all registers of the port and decodes the pins.
func (app *App) Read() (pins.Snapshot, map[port.Register]byte, error) {
	if app.io == nil {
		return pins.Snapshot{}, nil, port.ErrHardwareUnavailable
	}

	raw, err := app.readRegisters()
	if err != nil {
		return pins.Snapshot{}, nil, err
	}
	return app.catalog.DecodeRegisters(raw), raw, nil
}

func (app *App) readPin(name string) (pinResp, error) {
	pin, ok := app.catalog.Lookup(name)
	if !ok {
		return pinResp{}, fmt.Errorf("%w: %s", port.ErrUnknownPin, name)
	}

	raw, err := app.writer.Read(pin.Register)
	if err != nil {
		return pinResp{}, err
	}

	return pinResp{
		Name:      pin.Name,
		Register:  pin.Register,
		Bit:       pin.Bit,
		Connector: pin.Connector,
		Asserted:  pin.Asserted(raw),
		Raw:       fmt.Sprintf("0x%02X", raw),
	}, nil
}

// HandlePort returns the port of the session, the backend and the pin catalog.
func (app *App) HandlePort() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request port")

		return ctx.JSON(fiber.Map{
			"port":      app.desc,
			"address":   app.desc.String(),
			"backend":   app.config.Backend.Type,
			"available": app.io != nil && app.io.Available(),
			"monitor":   app.monitor.State().String(),
			"dropped":   app.Dropped(),
			"pins":      app.catalog.Pins(),
		})
	}
}

// HandlePins returns the snapshot of all pins, read from the hardware.
func (app *App) HandlePins() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request pins")

		snapshot, _, err := app.Read()
		if err != nil {
			return webError(ctx, err)
		}
		return ctx.JSON(snapshot)
	}
}

// HandlePin returns the state of pin :name.
func (app *App) HandlePin() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Printf("web request pin %s", ctx.Params("name"))

		resp, err := app.readPin(ctx.Params("name"))
		if err != nil {
			return webError(ctx, err)
		}
		return ctx.JSON(resp)
	}
}

// HandleSetPin drives pin :name to the state of query parameter state (on|off).
func (app *App) HandleSetPin() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		name := ctx.Params("name")
		debug.InfoLog.Printf("web request set pin %s=%s", name, ctx.Query("state"))

		asserted, err := pins.ParseState(ctx.Query("state"))
		if err != nil {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		op, err := app.PinOperation(name)
		if err != nil {
			return webError(ctx, err)
		}
		if err = app.Execute(context.Background(), Request{Operation: op, Pin: name, Asserted: asserted}); err != nil {
			return webError(ctx, err)
		}

		resp, err := app.readPin(name)
		if err != nil {
			return webError(ctx, err)
		}
		return ctx.JSON(resp)
	}
}

// HandleRegisters returns the raw bytes of all registers.
func (app *App) HandleRegisters() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request registers")

		raw, err := app.readRegisters()
		if err != nil {
			return webError(ctx, err)
		}

		resp := make(map[string]string, len(raw))
		for r, b := range raw {
			resp[r.String()] = fmt.Sprintf("0x%02X", b)
		}
		return ctx.JSON(resp)
	}
}

// HandleWriteRegister overwrites register :register with query parameter value (e.g. 0x7F or 127).
func (app *App) HandleWriteRegister() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Printf("web request write register %s=%s", ctx.Params("register"), ctx.Query("value"))

		r, err := port.ParseRegister(ctx.Params("register"))
		if err != nil {
			return webError(ctx, err)
		}

		v, err := strconv.ParseUint(ctx.Query("value"), 0, 8)
		if err != nil {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("invalid value %q", ctx.Query("value"))})
		}

		if err = app.writer.WriteRegister(r, byte(v)); err != nil {
			return webError(ctx, err)
		}

		return ctx.JSON(fiber.Map{r.String(): fmt.Sprintf("0x%02X", v)})
	}
}
