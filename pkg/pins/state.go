package pins

import (
	"fmt"
	"strings"
)

// ParseState parses the requested pin state, e.g. of a web or mqtt request.
// Accepted values are on|off, 1|0, true|false, high|low and set|clear.
func ParseState(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "true", "high", "set":
		return true, nil
	case "off", "0", "false", "low", "clear":
		return false, nil
	}
	return false, fmt.Errorf("invalid pin state %q", s)
}

// FormatState returns ON or OFF.
func FormatState(asserted bool) string {
	if asserted {
		return "ON"
	}
	return "OFF"
}
