// Package discovery enumerates the parallel ports of the host.
package discovery

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"lptmon/pkg/port"

	"github.com/womat/debug"
)

// DefaultIOPorts is the kernel's table of allocated i/o port regions.
const DefaultIOPorts = "/proc/ioports"

// Service lists the ports found in an ioports table plus statically configured ports.
type Service struct {
	// File is the path of the ioports table, empty disables the lookup.
	File string
	// Static ports are listed before discovered ports.
	Static []port.Descriptor
}

// Ports returns all known ports. A failing lookup is logged and treated as "no ports found".
func (s Service) Ports() []port.Descriptor {
	ports := append([]port.Descriptor(nil), s.Static...)
	if s.File == "" {
		return ports
	}

	found, err := FromFile(s.File)
	if err != nil {
		debug.ErrorLog.Printf("can't enumerate parallel ports: %v", err)
		return ports
	}

	for _, f := range found {
		if !contains(ports, f) {
			ports = append(ports, f)
		}
	}
	return ports
}

// FromFile parses the ioports table at path.
func FromFile(path string) ([]port.Descriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return Parse(file)
}

// Parse reads an ioports table and returns one descriptor per parport device.
//  0378-037a : parport0
//  0778-077a : parport0
// A device can own several regions (SPP and ECP), only the first region is used.
func Parse(r io.Reader) ([]port.Descriptor, error) {
	var ports []port.Descriptor
	seen := map[string]bool{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), ":", 2)
		if len(fields) != 2 {
			continue
		}

		name := strings.TrimSpace(fields[1])
		if !strings.HasPrefix(name, "parport") || seen[name] {
			continue
		}

		var start, end uint64
		if _, err := fmt.Sscanf(strings.TrimSpace(fields[0]), "%x-%x", &start, &end); err != nil {
			debug.DebugLog.Printf("skip ioports entry %q: %v", scanner.Text(), err)
			continue
		}
		if end > 0xFFFF {
			continue
		}

		d, err := port.FromRange(name, uint16(start), uint16(end))
		if err != nil {
			debug.DebugLog.Printf("skip ioports entry %q: %v", scanner.Text(), err)
			continue
		}

		seen[name] = true
		ports = append(ports, d)
	}

	return ports, scanner.Err()
}

// Select returns the port with the given name or 1-based index.
// An empty selector returns the first port.
func Select(ports []port.Descriptor, selector string) (port.Descriptor, error) {
	if len(ports) == 0 {
		return port.Descriptor{}, fmt.Errorf("no parallel ports found")
	}
	if selector == "" {
		return ports[0], nil
	}

	for _, p := range ports {
		if strings.EqualFold(p.Name, selector) {
			return p, nil
		}
	}

	if i, err := strconv.Atoi(selector); err == nil && i >= 1 && i <= len(ports) {
		return ports[i-1], nil
	}

	return port.Descriptor{}, fmt.Errorf("port %q not found", selector)
}

func contains(ports []port.Descriptor, d port.Descriptor) bool {
	for _, p := range ports {
		if p.Name == d.Name || p.BaseAddress == d.BaseAddress {
			return true
		}
	}
	return false
}
