package simport

import (
	"errors"
	"io"
	"testing"

	"lptmon/pkg/port"
)

func TestScript(t *testing.T) {
	p := New()
	p.Script(0x378, 0x01, 0x02)

	for _, want := range []byte{0x01, 0x02, 0x02} {
		got, err := p.ReadPort(0x378)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("ReadPort = 0x%02X, want 0x%02X", got, want)
		}
	}

	if p.Reads() != 3 {
		t.Errorf("Reads() = %d, want 3", p.Reads())
	}
}

func TestWriteThenRead(t *testing.T) {
	p := New()
	if err := p.WritePort(0x37A, 0x0B); err != nil {
		t.Fatal(err)
	}

	if got, _ := p.ReadPort(0x37A); got != 0x0B {
		t.Errorf("ReadPort = 0x%02X, want 0x0B", got)
	}

	w := p.Writes()
	if len(w) != 1 || w[0] != (WriteOp{Address: 0x37A, Value: 0x0B}) {
		t.Errorf("Writes() = %v", w)
	}
}

func TestUnavailable(t *testing.T) {
	p := New()
	p.SetAvailable(false)

	if p.Available() {
		t.Error("expected unavailable port")
	}
	if _, err := p.ReadPort(0x378); !errors.Is(err, port.ErrHardwareUnavailable) {
		t.Errorf("expected ErrHardwareUnavailable, got %v", err)
	}
	if err := p.WritePort(0x378, 1); !errors.Is(err, port.ErrHardwareUnavailable) {
		t.Errorf("expected ErrHardwareUnavailable, got %v", err)
	}
}

func TestFailures(t *testing.T) {
	p := New()
	errBus := errors.New("bus error")

	p.FailWrites(errBus)
	if err := p.WritePort(0x378, 0xFF); !errors.Is(err, errBus) {
		t.Errorf("expected bus error, got %v", err)
	}
	if p.Get(0x378) != 0 {
		t.Error("failed write must not change memory")
	}

	p.FailWrites(nil)
	p.FailReads(errBus)
	if _, err := p.ReadPort(0x378); !errors.Is(err, errBus) {
		t.Errorf("expected bus error, got %v", err)
	}
}

func TestPortMethods(t *testing.T) {
	var v interface{} = New()

	if _, ok := v.(port.IO); !ok {
		t.Error("Port must implement port.IO")
	}
	// the address argument doesn't fit the signatures of the io interfaces
	if _, ok := v.(io.ByteReader); ok {
		t.Error("Port must not look like an io.ByteReader")
	}
	if _, ok := v.(io.ByteWriter); ok {
		t.Error("Port must not look like an io.ByteWriter")
	}
}
