package raspberry

import (
	"testing"

	"lptmon/pkg/port"
)

func TestLines(t *testing.T) {
	w := Wiring{Data: []int{2, 3, 4}, Status: []int{-1, -1, -1, 5}}

	data := w.Lines(port.Data)
	if data[0] != 2 || data[2] != 4 || data[3] != Unwired || data[7] != Unwired {
		t.Errorf("Lines(data) = %v", data)
	}

	status := w.Lines(port.Status)
	if status[0] != Unwired || status[3] != 5 {
		t.Errorf("Lines(status) = %v", status)
	}

	for _, l := range w.Lines(port.Control) {
		if l != Unwired {
			t.Fatalf("Lines(control) = %v", w.Lines(port.Control))
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		w     Wiring
		valid bool
	}{
		{"empty", Wiring{}, true},
		{"standard", Wiring{
			Data:    []int{2, 3, 4, 17, 27, 22, 10, 9},
			Status:  []int{-1, -1, -1, 11, 5, 6, 13, 19},
			Control: []int{26, 14, 15, 18},
			Bias:    "pullup",
		}, true},
		{"shared line", Wiring{Data: []int{2}, Control: []int{2}}, false},
		{"too many bits", Wiring{Data: []int{1, 2, 3, 4, 5, 6, 7, 8, 9}}, false},
		{"negative line", Wiring{Data: []int{-2}}, false},
		{"bad bias", Wiring{Bias: "floating"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
