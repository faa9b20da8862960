package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// parseHourMinute splits an "HH:mm" wall-clock string.
func parseHourMinute(value string) (int, int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:mm", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

// AddMinutes adds n minutes to an "HH:mm" time, rolling hour boundaries
// within a single day. Windows never cross midnight so rolling past 23:59 is
// not supported; the result simply keeps counting hours.
func AddMinutes(value string, n int) (string, error) {
	hour, minute, err := parseHourMinute(value)
	if err != nil {
		return "", err
	}
	total := hour*60 + minute + n
	if total < 0 {
		return "", fmt.Errorf("cannot roll %q before 00:00", value)
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60), nil
}

// WithinWindow reports whether current falls inside [windowStart, windowEnd],
// comparing "HH:mm" strings lexicographically. That is only correct because
// windows never cross midnight. Malformed input fails closed.
func WithinWindow(current, windowStart, windowEnd string) bool {
	for _, v := range []string{current, windowStart, windowEnd} {
		if _, _, err := parseHourMinute(v); err != nil {
			return false
		}
	}
	return current >= windowStart && current <= windowEnd
}

// Window is an inclusive wall-clock interval used in rejection messages.
type Window struct {
	Start string
	End   string
}

func (w Window) String() string {
	return w.Start + " - " + w.End
}

// GraceWindow builds the admissible window [anchor, anchor+graceMinutes].
// Check-in anchors on the scheduled start, check-out on the scheduled end.
func GraceWindow(anchor string, graceMinutes int) (Window, error) {
	end, err := AddMinutes(anchor, graceMinutes)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: anchor, End: end}, nil
}
