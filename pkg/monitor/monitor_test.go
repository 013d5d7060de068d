package monitor

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"lptmon/pkg/pins"
	"lptmon/pkg/port"
	"lptmon/pkg/simport"

	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

func dataOnly(t *testing.T) port.Descriptor {
	t.Helper()
	d, err := port.NewDescriptor("LPT1", 0x378, 1)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func fullPort(t *testing.T) port.Descriptor {
	t.Helper()
	d, err := port.NewDescriptor("LPT1", 0x378, 3)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSampleSequence(t *testing.T) {
	sim := simport.New()
	sim.Script(0x378, 0x00, 0x01, 0x01, 0x03)
	m := New(sim, dataOnly(t))

	want := [][]Event{
		nil,
		{{Name: "D0", Previous: false, Current: true, Cycle: 1}},
		nil,
		{{Name: "D1", Previous: false, Current: true, Cycle: 3}},
	}

	for cycle, w := range want {
		got, err := m.Sample()
		if err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
		if len(got) != len(w) {
			t.Fatalf("cycle %d: got %v, want %v", cycle, got, w)
		}
		for i := range w {
			g := got[i]
			g.Time = time.Time{}
			if g != w[i] {
				t.Errorf("cycle %d: got %v, want %v", cycle, g, w[i])
			}
		}
	}
}

func TestSampleConcurrent(t *testing.T) {
	const n = 200

	// D0 toggles with every read, so read k decodes D0 = k is odd
	values := make([]byte, n)
	for i := range values {
		values[i] = byte(i % 2)
	}
	sim := simport.New()
	sim.Script(0x378, values...)
	m := New(sim, dataOnly(t))

	var (
		mu     sync.Mutex
		events []Event
		wg     sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := m.Sample()
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			events = append(events, e...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(events) != n-1 {
		t.Fatalf("got %d events, want %d", len(events), n-1)
	}

	seen := map[uint64]bool{}
	for _, e := range events {
		if seen[e.Cycle] {
			t.Errorf("cycle %d reported twice", e.Cycle)
		}
		seen[e.Cycle] = true

		if e.Name != "D0" || e.Current != (e.Cycle%2 == 1) || e.Previous == e.Current {
			t.Errorf("event %v doesn't match the value read in its cycle", e)
		}
	}

	if a, _ := m.Snapshot().Get("D0"); !a {
		t.Error("the last cycle must be retained")
	}
}

func TestSampleInitialDump(t *testing.T) {
	sim := simport.New()
	// data D2, status 0x7F (BUSY asserted, nACK released), control 0x05 (nSTROBE asserted, nINIT released)
	sim.Set(0x378, 0x04)
	sim.Set(0x379, 0x7F)
	sim.Set(0x37A, 0x05)
	m := New(sim, fullPort(t))

	got, err := m.Sample()
	if err != nil {
		t.Fatal(err)
	}

	// catalog order, only asserted pins
	want := []string{"D2", "SELECT", "PAPEROUT", "BUSY", "nSTROBE"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, e := range got {
		if e.Name != want[i] || e.Previous || !e.Current || e.Cycle != 0 {
			t.Errorf("event %d = %v, want %s OFF -> ON on cycle 0", i, e, want[i])
		}
	}

	// the same sample again doesn't report anything
	got, err = m.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("unchanged sample reported %v", got)
	}
}

func TestSampleFailureKeepsSnapshot(t *testing.T) {
	sim := simport.New()
	sim.Set(0x378, 0x01)
	m := New(sim, dataOnly(t))

	if _, err := m.Sample(); err != nil {
		t.Fatal(err)
	}

	sim.FailReads(errors.New("bus error"))
	if _, err := m.Sample(); !errors.Is(err, port.ErrHardwareUnavailable) {
		t.Fatalf("expected ErrHardwareUnavailable, got %v", err)
	}
	if v, _ := m.Snapshot().Get("D0"); !v {
		t.Error("failed sample changed the retained snapshot")
	}

	sim.FailReads(nil)
	sim.Set(0x378, 0x00)
	got, err := m.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Cycle != 1 {
		t.Errorf("expected D0 release on cycle 1, got %v", got)
	}
}

func TestSampleCustomCatalog(t *testing.T) {
	c, err := pins.NewCatalog([]pins.Pin{
		{Register: port.Data, Bit: 7, Polarity: pins.ActiveLow, Name: "RESET"},
	})
	if err != nil {
		t.Fatal(err)
	}

	sim := simport.New()
	sim.Set(0x378, 0x7F)
	m := New(sim, dataOnly(t), WithCatalog(c))

	got, err := m.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "RESET" || !got[0].Current {
		t.Errorf("got %v", got)
	}
}

func TestRun(t *testing.T) {
	sim := simport.New()
	sim.Script(0x378, 0x00, 0x01, 0x01, 0x03)
	m := New(sim, dataOnly(t), WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		events []Event
	)
	done := make(chan error)
	go func() {
		done <- m.Run(ctx, func(e Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
			if len(events) == 2 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run didn't stop after cancellation")
	}

	if m.State() != Stopped {
		t.Errorf("State() = %v, want stopped", m.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0].Name != "D0" || events[0].Cycle != 1 ||
		events[1].Name != "D1" || events[1].Cycle != 3 {
		t.Errorf("events = %v", events)
	}

	if err := m.Run(context.Background(), nil); !errors.Is(err, ErrStarted) {
		t.Errorf("second Run: expected ErrStarted, got %v", err)
	}
}

func TestRunUnavailable(t *testing.T) {
	sim := simport.New()
	sim.SetAvailable(false)
	m := New(sim, dataOnly(t))

	err := m.Run(context.Background(), func(Event) {})
	if !errors.Is(err, port.ErrHardwareUnavailable) {
		t.Fatalf("expected ErrHardwareUnavailable, got %v", err)
	}
	if sim.Reads() != 0 {
		t.Error("no register may be read if the hardware is unavailable")
	}
	if m.State() != Stopped {
		t.Errorf("State() = %v, want stopped", m.State())
	}
}

func TestRunHardwareFailure(t *testing.T) {
	sim := simport.New()
	sim.FailReads(errors.New("bus error"))
	m := New(sim, dataOnly(t), WithInterval(time.Millisecond))

	err := m.Run(context.Background(), func(Event) {})
	if !errors.Is(err, port.ErrHardwareUnavailable) {
		t.Fatalf("expected ErrHardwareUnavailable, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[StateType]string{
		Idle: "idle", Sampling: "sampling", Emitting: "emitting", Stopped: "stopped",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestWatchRange(t *testing.T) {
	sim := simport.New()
	sim.Script(0x37A, 0x00, 0x00, 0x04)
	d, err := port.FromRange("LPT1", 0x378, 0x37B)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []uint64
	err = WatchRange(ctx, sim, d, time.Millisecond, func(cycle uint64, raw []byte) {
		if len(raw) != 4 {
			t.Errorf("expected 4 bytes, got %d", len(raw))
		}
		got = append(got, cycle)
		if len(got) == 2 {
			if raw[2] != 0x04 {
				t.Errorf("raw[2] = 0x%02X, want 0x04", raw[2])
			}
			cancel()
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("reported cycles %v, want [0 2]", got)
	}
}
