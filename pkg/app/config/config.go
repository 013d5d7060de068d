package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"lptmon/pkg/discovery"
	"lptmon/pkg/pins"
	"lptmon/pkg/port"
	"lptmon/pkg/raspberry"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Backends of the hardware i/o primitive.
const (
	BackendDevPort = "devport"
	BackendGpio    = "gpio"
	BackendSim     = "sim"
)

// Config holds the application configuration. Attention!
// To make it possible to overwrite fields with command line options
// each of the struct fields must be in the format
// first letter uppercase -> followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	// Port selects the port by name or 1-based index, empty selects the first port.
	Port        string          `yaml:"port"`
	Ports       []PortConfig    `yaml:"ports"`
	IOPorts     string          `yaml:"ioports"`
	Backend     BackendConfig   `yaml:"backend"`
	IntervalInt int             `yaml:"interval"`
	Interval    time.Duration   `yaml:"-"`
	Buffer      int             `yaml:"buffer"`
	Pins        []pins.Pin      `yaml:"pins"`
	Flag        FlagConfig      `yaml:"-"`
	Debug       DebugConfig     `yaml:"debug"`
	Webserver   WebserverConfig `yaml:"webserver"`
	MQTT        MQTTConfig      `yaml:"mqtt"`
}

// PortConfig defines a port which isn't listed in the ioports table.
type PortConfig struct {
	Name      string `yaml:"name"`
	Base      uint16 `yaml:"base"`
	Registers int    `yaml:"registers"`
}

// BackendConfig defines the hardware i/o primitive.
type BackendConfig struct {
	Type    string           `yaml:"type"`
	DevPort string           `yaml:"devport"`
	Gpio    raspberry.Wiring `yaml:"gpio"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	ConfigFile string
	LogLevel   string
	Port       string
	Backend    string
	Interval   int
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	ClientID   string `yaml:"clientid"`
	Topic      string `yaml:"topic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		IOPorts:     discovery.DefaultIOPorts,
		IntervalInt: 10,
		Buffer:      256,
		Backend: BackendConfig{
			Type:    BackendDevPort,
			DevPort: "/dev/port",
			Gpio: raspberry.Wiring{
				Chip: raspberry.DefaultChip,
			},
		},
		Flag: FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version":   true,
				"health":    true,
				"port":      true,
				"pins":      true,
				"registers": true,
			},
		},
		MQTT: MQTTConfig{
			ClientID: "lptmon",
			Topic:    "lptmon",
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.LogLevel != "" {
		c.Debug.FlagString = c.Flag.LogLevel
	}
	if c.Flag.Port != "" {
		c.Port = c.Flag.Port
	}
	if c.Flag.Backend != "" {
		c.Backend.Type = c.Flag.Backend
	}
	if c.Flag.Interval > 0 {
		c.IntervalInt = c.Flag.Interval
	}

	switch c.Backend.Type {
	case BackendDevPort, BackendGpio, BackendSim:
	default:
		return fmt.Errorf("invalid backend %q", c.Backend.Type)
	}

	if c.IntervalInt <= 0 {
		return fmt.Errorf("invalid interval %d ms", c.IntervalInt)
	}
	c.Interval = time.Duration(c.IntervalInt) * time.Millisecond

	if _, err := c.Catalog(); err != nil {
		return fmt.Errorf("invalid pin table: %w", err)
	}

	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	return nil
}

// Catalog returns the configured pin table, the IEEE-1284 standard table if none is configured.
func (c *Config) Catalog() (*pins.Catalog, error) {
	if len(c.Pins) == 0 {
		return pins.NewStandard(), nil
	}
	return pins.NewCatalog(c.Pins)
}

// Descriptors returns the statically configured ports.
func (c *Config) Descriptors() ([]port.Descriptor, error) {
	d := make([]port.Descriptor, 0, len(c.Ports))

	for _, p := range c.Ports {
		count := p.Registers
		if count == 0 {
			count = 3
		}

		desc, err := port.NewDescriptor(p.Name, p.Base, count)
		if err != nil {
			return nil, err
		}
		d = append(d, desc)
	}
	return d, nil
}

func (c *Config) readConfigFile() error {
	if c.Flag.ConfigFile == "" {
		return nil
	}

	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil && err != io.EOF {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch strings.ToLower(c.Debug.FlagString) {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard", "info":
		c.Debug.Flag = debug.Standard
	case "warning":
		c.Debug.Flag = debug.Warning | debug.Error | debug.Fatal
	case "error":
		c.Debug.Flag = debug.Error | debug.Fatal
	case "fatal":
		c.Debug.Flag = debug.Fatal
	default:
		return fmt.Errorf("invalid log level %q", c.Debug.FlagString)
	}

	switch c.Debug.FileString {
	case "stderr", "":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
