package sun

import (
	"fmt"
	"strconv"
	"strings"

	"sky-gradient/internal/daytime"
)

// ParseTime converts a 12-hour clock string such as "6:05:30 PM" into
// minutes since midnight. Seconds are accepted and discarded.
func ParseTime(value string) (daytime.Minutes, error) {
	clock, modifier, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}
	modifier = strings.ToUpper(strings.TrimSpace(modifier))
	if modifier != "AM" && modifier != "PM" {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 1 || hours > 12 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}
	if len(parts) == 3 {
		if seconds, err := strconv.Atoi(parts[2]); err != nil || seconds < 0 || seconds > 59 {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
		}
	}

	if modifier == "PM" && hours != 12 {
		hours += 12
	}
	if modifier == "AM" && hours == 12 {
		hours = 0
	}

	return daytime.Minutes(hours*60 + minutes), nil
}
