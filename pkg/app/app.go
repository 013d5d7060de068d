package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"

	"lptmon/pkg/app/config"
	"lptmon/pkg/discovery"
	"lptmon/pkg/monitor"
	"lptmon/pkg/mqtt"
	"lptmon/pkg/pins"
	"lptmon/pkg/port"
	"lptmon/pkg/writer"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// desc is the port of the session
	desc port.Descriptor
	// io is the hardware i/o primitive, closer releases it
	io     port.IO
	closer io.Closer

	catalog *pins.Catalog
	monitor *monitor.Monitor
	writer  *writer.Writer

	// events decouples the polling loop from the consumers (mqtt)
	events chan monitor.Event
	// dropped counts events which didn't fit into events
	dropped uint64

	// cancel stops the monitor of Run, wg waits for the monitor and the publisher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	buffer := config.Buffer
	if buffer <= 0 {
		buffer = 1
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:  fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt: mqtt.New(),

		events:   make(chan monitor.Event, buffer),
		shutdown: make(chan struct{}),
	}, nil
}

// Open selects the port, opens the hardware backend and builds monitor and writer.
// Open fails with port.ErrHardwareUnavailable if the backend denies access.
func (app *App) Open() (err error) {
	if app.io != nil {
		return nil
	}

	if app.catalog, err = app.config.Catalog(); err != nil {
		return fmt.Errorf("invalid pin catalog: %w", err)
	}

	ports, err := app.Ports()
	if err != nil {
		return err
	}
	if app.desc, err = discovery.Select(ports, app.config.Port); err != nil {
		return err
	}

	pio, closer, err := openBackend(app.config, app.desc)
	if err != nil {
		debug.ErrorLog.Printf("can't open %s backend: %v", app.config.Backend.Type, err)
		return err
	}

	if err = app.attach(pio, closer); err != nil {
		return fmt.Errorf("%s: %w", app.desc, err)
	}

	debug.InfoLog.Printf("opened %v (%s backend)", app.desc, app.config.Backend.Type)
	return nil
}

// attach builds writer and monitor on top of an opened backend.
// A backend which denies access is closed again.
func (app *App) attach(pio port.IO, closer io.Closer) error {
	w := writer.New(pio, app.desc, app.catalog)
	if err := w.Check(); err != nil {
		_ = closer.Close()
		return err
	}

	app.io, app.closer, app.writer = pio, closer, w
	app.monitor = app.newMonitor()
	return nil
}

func (app *App) newMonitor() *monitor.Monitor {
	return monitor.New(app.io, app.desc,
		monitor.WithInterval(app.config.Interval),
		monitor.WithCatalog(app.catalog))
}

// Ports lists the configured ports followed by the ports of the ioports table.
// The sim backend falls back to a virtual LPT1 if no port is known.
func (app *App) Ports() ([]port.Descriptor, error) {
	static, err := app.config.Descriptors()
	if err != nil {
		return nil, err
	}

	s := discovery.Service{File: app.config.IOPorts, Static: static}
	ports := s.Ports()

	if len(ports) == 0 && app.config.Backend.Type == config.BackendSim {
		ports = append(ports, port.Descriptor{Name: "LPT1", BaseAddress: 0x378, RegisterCount: 3})
	}
	return ports, nil
}

// Port returns the port of the session.
func (app *App) Port() port.Descriptor {
	return app.desc
}

// Catalog returns the pin catalog of the session.
func (app *App) Catalog() *pins.Catalog {
	return app.catalog
}

// Writer returns the pin writer of the session.
func (app *App) Writer() *writer.Writer {
	return app.writer
}

// Dropped returns the number of change events lost because the consumers were too slow.
func (app *App) Dropped() uint64 {
	return atomic.LoadUint64(&app.dropped)
}

// Run starts the application: the monitor, the mqtt bridge and the web server.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	app.wg.Add(2)
	go func() {
		defer app.wg.Done()
		app.publishEvents()
	}()
	go func() {
		defer app.wg.Done()
		app.runMonitor(ctx)
	}()

	go app.mqtt.Service()
	go app.runWebServer()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if err = app.Open(); err != nil {
		return err
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection, app.config.MQTT.ClientID); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	if t := app.setTopic(); t != "" {
		if err = app.mqtt.Subscribe(t+"+", 1, app.handleSetRequest); err != nil {
			debug.ErrorLog.Printf("can't subscribe set requests %v", err)
			return err
		}
	}

	// initRoutes and initDefaultRoutes should be always called last because it may access things like app.api
	// which must be initialized before in initAPI()
	app.initDefaultRoutes()

	return nil
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/lptmon.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close stops the background loops and releases the hardware.
func (app *App) Close() error {
	if app.cancel != nil {
		// the monitor closes events, the publisher drains them before mqtt is closed
		app.cancel()
		app.wg.Wait()
		app.cancel = nil

		_ = app.web.Shutdown()
		_ = app.mqtt.Close()
	}

	if app.closer != nil {
		err := app.closer.Close()
		app.closer, app.io = nil, nil
		return err
	}
	return nil
}
