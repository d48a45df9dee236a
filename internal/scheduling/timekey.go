package scheduling

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// timePattern accepts "H:MM" or "HH:MM", optionally suffixed with AM/PM.
var timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])?$`)

// ParseTimeKey canonicalizes a wall-clock time string into its 24-hour
// "HH:MM" key. "12:00 AM" maps to "00:00" and "12:00 PM" to "12:00".
// Returns ok=false when the input does not look like a time at all.
func ParseTimeKey(s string) (string, bool) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 {
		return "", false
	}

	switch strings.ToUpper(m[3]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	}
	if hour > 23 {
		return "", false
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// NormalizeTimeKey is the best-effort form of ParseTimeKey. Malformed input
// falls back to the trimmed lower-cased original, so identical malformed
// strings still compare equal to each other even though they cannot be
// compared meaningfully against well-formed keys.
func NormalizeTimeKey(s string) string {
	if key, ok := ParseTimeKey(s); ok {
		return key
	}
	return strings.ToLower(strings.TrimSpace(s))
}
