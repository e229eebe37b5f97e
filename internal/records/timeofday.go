package records

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeOfDay is returned for due times not in HH:MM:SS form.
var ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM:SS")

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses a 24-hour H:M:S value. Each field takes one or two
// digits, so "9:05:00" and "09:05:00" are the same time.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}
	var fields [3]int
	for i, part := range parts {
		if len(part) < 1 || len(part) > 2 || strings.Trim(part, "0123456789") != "" {
			return TimeOfDay{}, ErrInvalidTimeOfDay
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return TimeOfDay{}, ErrInvalidTimeOfDay
		}
		fields[i] = n
	}
	if fields[0] > 23 || fields[1] > 59 || fields[2] > 59 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}
	return TimeOfDay{Hour: fields[0], Minute: fields[1], Second: fields[2]}, nil
}

// String formats the value as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On combines t with the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, day.Location())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return fmt.Errorf("due time %q: %w", text, err)
	}
	*t = parsed
	return nil
}
