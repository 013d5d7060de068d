package monitor

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"lptmon/pkg/port"

	"github.com/womat/debug"
)

// RangeHandler receives the raw bytes of the whole address range of a port,
// raw[0] is the byte at the base address.
type RangeHandler func(cycle uint64, raw []byte)

// WatchRange reads every address of the port (base .. base+register count-1)
// until ctx is cancelled and calls h whenever at least one byte changed.
// The first cycle is always reported.
func WatchRange(ctx context.Context, io port.IO, desc port.Descriptor, interval time.Duration, h RangeHandler) error {
	if !io.Available() {
		return fmt.Errorf("watch %s: %w", desc.Name, port.ErrHardwareUnavailable)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	var last []byte
	t := time.NewTimer(0)
	defer t.Stop()

	for cycle := uint64(0); ; cycle++ {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if ctx.Err() != nil {
			return nil
		}

		raw := make([]byte, desc.RegisterCount)
		for i := range raw {
			b, err := io.ReadPort(desc.BaseAddress + uint16(i))
			if err != nil {
				debug.ErrorLog.Printf("watch %s: %v", desc.Name, err)
				return fmt.Errorf("%w: %v", port.ErrHardwareUnavailable, err)
			}
			raw[i] = b
		}

		if last == nil || !bytes.Equal(last, raw) {
			last = raw
			h(cycle, append([]byte(nil), raw...))
		}

		t.Reset(interval)
	}
}
