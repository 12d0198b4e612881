package recovery

import (
	"fmt"
	"time"
)

const (
	boundLayout      = "2006-01-02T15:04:05Z"
	boundLayoutMicro = "2006-01-02T15:04:05.000000Z"
)

// zoneless layouts accepted by ParseBound only to report them as missing a zone.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// HasZone reports whether t carries an explicit zone. The zero time and
// times in time.Local are treated as zone-less.
func HasZone(t time.Time) bool {
	return !t.IsZero() && t.Location() != time.Local
}

// ValidateBound returns a *ValidationError when t has no explicit zone.
func ValidateBound(field string, t time.Time) error {
	if !HasZone(t) {
		return &ValidationError{Field: field, Message: msgTimezoneRequired}
	}
	return nil
}

// FormatBound converts t to UTC and formats it as ISO-8601 with a literal Z.
// Fractional seconds are written with microsecond precision and only when
// non-zero.
func FormatBound(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(boundLayout)
	}
	return t.Format(boundLayoutMicro)
}

// ParseBound parses an ISO-8601 timestamp that must include a Z or numeric
// offset. Timestamps without one fail with a *ValidationError.
func ParseBound(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		// time.Parse picks time.Local when the offset matches the local zone.
		if t.Location() == time.Local {
			_, offset := t.Zone()
			t = t.In(time.FixedZone("", offset))
		}
		return t, nil
	}

	for _, layout := range zonelessLayouts {
		if _, zerr := time.Parse(layout, s); zerr == nil {
			return time.Time{}, &ValidationError{Field: field, Message: msgTimezoneRequired}
		}
	}

	return time.Time{}, &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("cannot parse %q as ISO-8601: %v", s, err),
	}
}
