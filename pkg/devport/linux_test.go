//go:build linux

package devport

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lptmon/pkg/port"
)

// a regular file behaves like /dev/port: the file offset is the address.
func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port")
	if err := os.WriteFile(path, make([]byte, 0x400), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = p.Close() }()

	if !p.Available() {
		t.Fatal("opened port must be available")
	}

	if err = p.WritePort(0x37A, 0x0B); err != nil {
		t.Fatal(err)
	}
	b, err := p.ReadPort(0x37A)
	if err != nil {
		t.Fatal(err)
	}
	if b != 0x0B {
		t.Errorf("ReadPort = 0x%02X, want 0x0B", b)
	}

	if b, _ = p.ReadPort(0x378); b != 0 {
		t.Errorf("ReadPort(0x378) = 0x%02X, want 0", b)
	}
}

func TestOpenFailure(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, port.ErrHardwareUnavailable) {
		t.Errorf("expected ErrHardwareUnavailable, got %v", err)
	}
}

func TestClosed(t *testing.T) {
	var p *Port
	if p.Available() {
		t.Error("nil port must not be available")
	}
	if _, err := p.ReadPort(0x378); !errors.Is(err, port.ErrHardwareUnavailable) {
		t.Errorf("expected ErrHardwareUnavailable, got %v", err)
	}
}
