package duration

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxHours is the largest hour value accepted. Timers may exceed a day.
	MaxHours = 99
	// MaxMinutes is the largest minute value accepted.
	MaxMinutes = 59
)

// ErrParseFailure is returned when no interpretation of the text yields a
// valid duration.
var ErrParseFailure = errors.New("could not parse timer text")

// ParseError describes why a particular input failed to parse.
type ParseError struct {
	// Input is the text as received, before trimming.
	Input string

	// Reason is a short human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v %q: %s", ErrParseFailure, e.Input, e.Reason)
}

// Unwrap returns ErrParseFailure so callers can use errors.Is.
func (e *ParseError) Unwrap() error {
	return ErrParseFailure
}

// Duration is a normalized timer value.
type Duration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// Valid reports whether both fields are in range.
func (d Duration) Valid() bool {
	return inRange(d.Hours, MaxHours) && inRange(d.Minutes, MaxMinutes)
}

// IsZero reports whether the duration is 00:00.
func (d Duration) IsZero() bool {
	return d.Hours == 0 && d.Minutes == 0
}

// Millis returns the total length in milliseconds.
func (d Duration) Millis() int64 {
	return (int64(d.Hours)*60 + int64(d.Minutes)) * 60 * 1000
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Millis()) * time.Millisecond
}

// String formats the duration as HH:MM.
func (d Duration) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hours, d.Minutes)
}

// FromMillis builds a Duration from a millisecond count, dropping seconds.
// Values beyond 99:59 are rejected.
func FromMillis(ms int64) (Duration, error) {
	if ms < 0 {
		return Duration{}, fmt.Errorf("negative duration: %dms", ms)
	}
	totalMinutes := ms / (60 * 1000)
	d := Duration{Hours: int(totalMinutes / 60), Minutes: int(totalMinutes % 60)}
	if !d.Valid() {
		return Duration{}, fmt.Errorf("duration %dms exceeds %02d:%02d", ms, MaxHours, MaxMinutes)
	}
	return d, nil
}

// Parse interprets OCR text from a timer display. See the package
// documentation for the rules.
func Parse(text string) (Duration, error) {
	trimmed := strings.TrimSpace(text)
	digits := strings.ReplaceAll(trimmed, ":", "")

	if d, ok := parseColonPair(trimmed); ok {
		return d, nil
	}

	hours, minutes := -1, -1
	hoursSet := true

	switch len(digits) {
	case 1, 2:
		minutes = atoi(digits)
		hoursSet = false
	case 3:
		hours = atoi(digits[:1])
		minutes = atoi(digits[1:])
	case 4:
		hours = atoi(digits[:2])
		minutes = atoi(digits[2:])
	case 5:
		// HHH+MM first; only a bad minute value triggers the HH+MM retry.
		// An oversized hour value is not retried and fails below.
		hours = atoi(digits[:3])
		minutes = atoi(digits[3:])
		if !inRange(minutes, MaxMinutes) {
			hours = atoi(digits[:2])
			minutes = atoi(digits[2:4])
		}
	case 6:
		hours = atoi(digits[:2])
		minutes = atoi(digits[2:4])
	default:
		return Duration{}, &ParseError{
			Input:  text,
			Reason: fmt.Sprintf("no interpretation for %d digits", len(digits)),
		}
	}

	if minutes < 0 {
		return Duration{}, &ParseError{Input: text, Reason: "minutes are not numeric"}
	}
	if !hoursSet {
		hours = 0
	} else if hours < 0 {
		return Duration{}, &ParseError{Input: text, Reason: "hours are not numeric"}
	}

	d := Duration{Hours: hours, Minutes: minutes}
	if !d.Valid() {
		return Duration{}, &ParseError{
			Input:  text,
			Reason: fmt.Sprintf("%d:%02d out of range", hours, minutes),
		}
	}
	return d, nil
}

// parseColonPair accepts "h:m" style text when both sides are in range.
func parseColonPair(text string) (Duration, bool) {
	if !strings.Contains(text, ":") {
		return Duration{}, false
	}
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return Duration{}, false
	}
	h, m := atoi(parts[0]), atoi(parts[1])
	if h < 0 || m < 0 {
		return Duration{}, false
	}
	d := Duration{Hours: h, Minutes: m}
	return d, d.Valid()
}

// atoi parses a string of ASCII digits. It returns -1 for empty input,
// any non-digit, or values too large to matter here.
func atoi(s string) int {
	if s == "" || len(s) > 6 {
		return -1
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func inRange(v, max int) bool {
	return v >= 0 && v <= max
}
