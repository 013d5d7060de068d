package app

import (
	"fmt"
	"io"

	"lptmon/pkg/app/config"
	"lptmon/pkg/devport"
	"lptmon/pkg/port"
	"lptmon/pkg/raspberry"
	"lptmon/pkg/simport"
)

type closeFunc func() error

func (f closeFunc) Close() error {
	return f()
}

// openBackend opens the configured hardware i/o primitive for port desc.
func openBackend(c *config.Config, desc port.Descriptor) (port.IO, io.Closer, error) {
	switch c.Backend.Type {
	case config.BackendDevPort:
		p, err := devport.Open(c.Backend.DevPort)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil

	case config.BackendGpio:
		chip, err := raspberry.Open(c.Backend.Gpio.Chip)
		if err != nil {
			return nil, nil, err
		}

		p, err := chip.NewPort(desc.BaseAddress, c.Backend.Gpio)
		if err != nil {
			_ = chip.Close()
			return nil, nil, err
		}

		return p, closeFunc(func() error {
			err := p.Close()
			if e := chip.Close(); err == nil {
				err = e
			}
			return err
		}), nil

	case config.BackendSim:
		p := simport.New()
		return p, closeFunc(func() error {
			p.SetAvailable(false)
			return nil
		}), nil
	}

	return nil, nil, fmt.Errorf("invalid backend %q", c.Backend.Type)
}
