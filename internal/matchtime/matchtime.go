// Package matchtime parses and formats the mm:ss elapsed-time strings
// carried on goal and penalty records.
package matchtime

import (
	"fmt"
	"regexp"
	"strconv"

	"rinkcenter/internal/domain"
)

// grammar: 1-3 minute digits, exactly 2 second digits
var timePattern = regexp.MustCompile(`^(\d{1,3}):(\d{2})$`)

// Parse splits text into minutes and seconds. Seconds outside [0,59]
// are rejected, not clamped.
func Parse(text string) (minutes, seconds int, err error) {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidTimeFormat, text)
	}
	minutes, _ = strconv.Atoi(m[1])
	seconds, _ = strconv.Atoi(m[2])
	if seconds > 59 {
		return 0, 0, fmt.Errorf("%w: seconds out of range in %q", domain.ErrInvalidTimeFormat, text)
	}
	return minutes, seconds, nil
}

// Format renders minutes and seconds back to mm:ss. Seconds are
// zero-padded, minutes are not. A pure-zero time means "no time
// entered" and renders as the empty string, not "00:00".
func Format(minutes, seconds int) string {
	if minutes == 0 && seconds == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// TotalSeconds converts text to its ordering key (minutes*60+seconds).
func TotalSeconds(text string) (int, error) {
	minutes, seconds, err := Parse(text)
	if err != nil {
		return 0, err
	}
	return minutes*60 + seconds, nil
}
