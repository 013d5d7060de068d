package pins

import "testing"

func TestParseState(t *testing.T) {
	for in, want := range map[string]bool{
		"on": true, "ON": true, " 1 ": true, "true": true, "high": true, "set": true,
		"off": false, "Off": false, "0": false, "false": false, "low": false, "clear": false,
	} {
		got, err := ParseState(in)
		if err != nil {
			t.Errorf("ParseState(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseState(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "2", "maybe"} {
		if _, err := ParseState(in); err == nil {
			t.Errorf("ParseState(%q) must fail", in)
		}
	}
}

func TestFormatState(t *testing.T) {
	if FormatState(true) != "ON" || FormatState(false) != "OFF" {
		t.Error("unexpected state format")
	}
}
