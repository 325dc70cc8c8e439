package types

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseGTFSTime converts a GTFS time of day ("H:MM:SS" or "HH:MM:SS") into
// seconds since the start of the service day. Hours may exceed 23 for trips
// that run past midnight.
func ParseGTFSTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("time %q: want H:MM:SS", s)
	}
	var vals [3]int
	for i, p := range parts {
		if p == "" {
			return 0, fmt.Errorf("time %q: empty component", s)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("time %q: invalid component %q", s, p)
		}
		vals[i] = v
	}
	if vals[1] > 59 || vals[2] > 59 {
		return 0, fmt.Errorf("time %q: minutes and seconds must be below 60", s)
	}
	return vals[0]*3600 + vals[1]*60 + vals[2], nil
}
