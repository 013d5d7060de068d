package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lptmon/pkg/port"

	"github.com/womat/debug"
)

const ioports = `0000-0cf7 : PCI Bus 0000:00
  0000-001f : dma1
  0060-0060 : keyboard
  0378-037a : parport0
  03c0-03df : vga+
  0778-077a : parport0
  0cf8-0cff : PCI conf1
  d010-d017 : parport1
`

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

func TestParse(t *testing.T) {
	ports, err := Parse(strings.NewReader(ioports))
	if err != nil {
		t.Fatal(err)
	}

	want := []port.Descriptor{
		{Name: "parport0", BaseAddress: 0x378, RegisterCount: 3},
		{Name: "parport1", BaseAddress: 0xD010, RegisterCount: 8},
	}
	if len(ports) != len(want) {
		t.Fatalf("got %v, want %v", ports, want)
	}
	for i := range want {
		if ports[i] != want[i] {
			t.Errorf("port %d = %v, want %v", i, ports[i], want[i])
		}
	}
}

func TestParseEmpty(t *testing.T) {
	ports, err := Parse(strings.NewReader("0000-001f : dma1\ngarbage\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ports) != 0 {
		t.Errorf("expected no ports, got %v", ports)
	}
}

func TestServicePorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ioports")
	if err := os.WriteFile(path, []byte(ioports), 0o644); err != nil {
		t.Fatal(err)
	}

	s := Service{
		File:   path,
		Static: []port.Descriptor{{Name: "LPT1", BaseAddress: 0x378, RegisterCount: 3}},
	}

	ports := s.Ports()
	// parport0 shares the base address of the static LPT1
	if len(ports) != 2 || ports[0].Name != "LPT1" || ports[1].Name != "parport1" {
		t.Errorf("Ports() = %v", ports)
	}
}

func TestServiceMissingFile(t *testing.T) {
	s := Service{File: filepath.Join(t.TempDir(), "missing")}
	if ports := s.Ports(); len(ports) != 0 {
		t.Errorf("expected no ports, got %v", ports)
	}
}

func TestSelect(t *testing.T) {
	ports := []port.Descriptor{
		{Name: "parport0", BaseAddress: 0x378, RegisterCount: 3},
		{Name: "parport1", BaseAddress: 0x278, RegisterCount: 3},
	}

	for sel, want := range map[string]string{
		"": "parport0", "PARPORT1": "parport1", "2": "parport1", "1": "parport0",
	} {
		got, err := Select(ports, sel)
		if err != nil {
			t.Fatalf("Select(%q) failed: %v", sel, err)
		}
		if got.Name != want {
			t.Errorf("Select(%q) = %s, want %s", sel, got.Name, want)
		}
	}

	for _, sel := range []string{"3", "0", "lpt9"} {
		if _, err := Select(ports, sel); err == nil {
			t.Errorf("Select(%q) must fail", sel)
		}
	}
	if _, err := Select(nil, ""); err == nil {
		t.Error("Select on an empty list must fail")
	}
}
