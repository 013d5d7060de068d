package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"lptmon/pkg/app"
	"lptmon/pkg/app/config"
	"lptmon/pkg/monitor"
	"lptmon/pkg/pins"
	"lptmon/pkg/port"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "Monitor and drive the pins of a parallel (LPT) port",
		Version: app.VERSION,
		Description: "Read the data, status and control register of a parallel port, decode the" +
			"\n signal lines (IEEE-1284 SPP) and report every change of a pin." +
			"\n Single pins or whole registers can be written, the serve command publishes" +
			"\n the pins over http and mqtt.",
		UsageText: "lptmon [--conf <file>] [--log error|debug|trace] [--port <name|index>] <command>" +
			"\n\nEXAMPLE:" +
			"\n\tshow the pin changes of the second port" +
			"\n\t\tlptmon --port 2 watch" +
			"\n\tswitch data pin D3 on" +
			"\n\t\tlptmon set D3 on",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.LogLevel, Usage: "`LEVEL` defines the log level (fatal|info|warning|error|debug|trace)"},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Destination: &cfg.Flag.Port, Usage: "select the port by `NAME` or 1-based index"},
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Destination: &cfg.Flag.Backend, Usage: "`BACKEND` of the port i/o (devport|gpio|sim)"},
			&cli.IntFlag{Name: "interval", Aliases: []string{"i"}, Destination: &cfg.Flag.Interval, Usage: "sampling interval in `MS`"},
		},
		Before: func(ctx *cli.Context) error {
			return loadConfig(ctx, cfg)
		},
		After: func(ctx *cli.Context) error {
			if cfg.Debug.File != nil && cfg.Debug.File != os.Stderr && cfg.Debug.File != os.Stdout {
				debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
				return cfg.Debug.File.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "ports",
				Usage:  "list the parallel ports",
				Action: func(ctx *cli.Context) error { return listPorts(ctx, cfg) },
			},
			{
				Name:  "read",
				Usage: "read the registers once and show the pins",
				Action: func(ctx *cli.Context) error {
					return session(cfg, func(a *app.App) error { return readPins(ctx, a) })
				},
			},
			{
				Name:  "watch",
				Usage: "show every change of a pin",
				Action: func(ctx *cli.Context) error {
					return session(cfg, func(a *app.App) error { return watchPins(ctx, a) })
				},
			},
			{
				Name:  "raw",
				Usage: "show the raw bytes of the whole address range whenever one changes",
				Action: func(ctx *cli.Context) error {
					return session(cfg, func(a *app.App) error { return watchRange(ctx, a) })
				},
			},
			{
				Name:      "set",
				Usage:     "switch a data or control pin",
				ArgsUsage: "<pin> <on|off>",
				Action: func(ctx *cli.Context) error {
					return session(cfg, func(a *app.App) error { return setPin(ctx, a) })
				},
			},
			{
				Name:      "write",
				Usage:     "overwrite a register",
				ArgsUsage: "<data|control> <value|set|clear>",
				Action: func(ctx *cli.Context) error {
					return session(cfg, func(a *app.App) error { return writeRegister(ctx, a) })
				},
			},
			{
				Name:  "sweep",
				Usage: "write the values 0 to 255 to the data register",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "delay", Aliases: []string{"d"}, Value: 10 * time.Millisecond, Usage: "pause between two values"},
				},
				Action: func(ctx *cli.Context) error {
					return session(cfg, func(a *app.App) error { return sweep(ctx, a) })
				},
			},
			{
				Name:   "serve",
				Usage:  "monitor the port and publish the pins over http and mqtt",
				Action: func(ctx *cli.Context) error { return serve(cfg) },
			},
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
	return
}

// loadConfig reads the configuration file. A missing default configuration file isn't an error.
func loadConfig(ctx *cli.Context, cfg *config.Config) error {
	if !ctx.IsSet("config") {
		if _, err := os.Stat(cfg.Flag.ConfigFile); errors.Is(err, fs.ErrNotExist) {
			cfg.Flag.ConfigFile = ""
		}
	}

	if err := cfg.LoadConfig(); err != nil {
		return err
	}

	debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
	return nil
}

// signalContext is cancelled on CTRL C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// session opens the selected port, runs f and releases the port.
func session(cfg *config.Config, f func(a *app.App) error) error {
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if err = a.Open(); err != nil {
		return err
	}
	return f(a)
}

func listPorts(ctx *cli.Context, cfg *config.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	ports, err := a.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(ctx.App.Writer, "no parallel port found")
		return nil
	}

	for i, p := range ports {
		fmt.Fprintf(ctx.App.Writer, "%d: %v\n", i+1, p)
	}
	return nil
}

func readPins(ctx *cli.Context, a *app.App) error {
	snapshot, raw, err := a.Read()
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, a.Port())
	for _, r := range a.Port().Present() {
		fmt.Fprintf(ctx.App.Writer, "%-8v 0x%02X\n", r, raw[r])
		for _, p := range a.Catalog().OnRegister(r) {
			asserted, _ := snapshot.Get(p.Name)
			fmt.Fprintf(ctx.App.Writer, "  %-10s %s\n", p.Name, pins.FormatState(asserted))
		}
	}
	return nil
}

func watchPins(ctx *cli.Context, a *app.App) error {
	sctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(ctx.App.Writer, "watching %v, press CTRL C to stop\n", a.Port())
	return a.Execute(sctx, app.Request{
		Operation: app.ReadPins,
		OnChange: func(e monitor.Event) {
			fmt.Fprintf(ctx.App.Writer, "%s %v\n", e.Time.Format("15:04:05.000"), e)
		},
	})
}

func watchRange(ctx *cli.Context, a *app.App) error {
	sctx, cancel := signalContext()
	defer cancel()

	base := a.Port().BaseAddress
	return a.Execute(sctx, app.Request{
		Operation: app.ReadWholeRange,
		OnRange: func(cycle uint64, raw []byte) {
			s := make([]string, len(raw))
			for i, b := range raw {
				s[i] = fmt.Sprintf("0x%04X=0x%02X", base+uint16(i), b)
			}
			fmt.Fprintf(ctx.App.Writer, "cycle %d: %s\n", cycle, strings.Join(s, " "))
		},
	})
}

func setPin(ctx *cli.Context, a *app.App) error {
	if ctx.Args().Len() != 2 {
		return fmt.Errorf("usage: set <pin> <on|off>")
	}

	name := ctx.Args().Get(0)
	asserted, err := pins.ParseState(ctx.Args().Get(1))
	if err != nil {
		return err
	}

	op, err := a.PinOperation(name)
	if err != nil {
		return err
	}
	if err = a.Execute(context.Background(), app.Request{Operation: op, Pin: name, Asserted: asserted}); err != nil {
		return err
	}

	fmt.Fprintf(ctx.App.Writer, "%s %s\n", name, pins.FormatState(asserted))
	return nil
}

func writeRegister(ctx *cli.Context, a *app.App) error {
	if ctx.Args().Len() != 2 {
		return fmt.Errorf("usage: write <data|control> <value|set|clear>")
	}

	r, err := port.ParseRegister(ctx.Args().Get(0))
	if err != nil {
		return err
	}

	bulk := map[string]map[port.Register]app.Operation{
		"set":   {port.Data: app.SetAllDataPins, port.Control: app.SetAllControlPins},
		"clear": {port.Data: app.ClearAllDataPins, port.Control: app.ClearAllControlPins},
	}

	arg := strings.ToLower(ctx.Args().Get(1))
	if ops, ok := bulk[arg]; ok {
		op, ok := ops[r]
		if !ok {
			return fmt.Errorf("%w: can't %s all pins of the %v register", port.ErrInvalidRegister, arg, r)
		}
		return a.Execute(context.Background(), app.Request{Operation: op})
	}

	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return fmt.Errorf("invalid value %q", arg)
	}
	return a.Writer().WriteRegister(r, byte(v))
}

func sweep(ctx *cli.Context, a *app.App) error {
	sctx, cancel := signalContext()
	defer cancel()

	return a.Execute(sctx, app.Request{
		Operation: app.WriteDataSweep,
		Interval:  ctx.Duration("delay"),
		OnSweep: func(v byte) {
			fmt.Fprintf(ctx.App.Writer, "\rdata 0x%02X", v)
			if v == 0xFF {
				fmt.Fprintln(ctx.App.Writer)
			}
		},
	})
}

func serve(cfg *config.Config) error {
	a, err := app.New(cfg)
	defer func() {
		debug.InfoLog.Printf("closing app %s", app.Version())
		_ = a.Close()
	}()

	if err != nil {
		return err
	}

	debug.InfoLog.Printf("starting app %s", app.Version())
	if err = a.Run(); err != nil {
		return err
	}

	// capture exit signals to ensure resources are released on exit.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// wait for am os.Interrupt signal (CTRL C) or a failure of the port
	select {
	case sig := <-quit:
		debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
	case <-a.Shutdown():
		return fmt.Errorf("monitor of %v stopped", a.Port())
	}

	return nil
}
