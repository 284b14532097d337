package message

import (
	"time"

	"github.com/simcesplatform/simulation-tools/errors"
)

// timestampLayout is the wire format for all datetime attributes:
// ISO 8601 with millisecond precision in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// acceptedLayouts are the datetime formats accepted on input. Everything is
// normalized to timestampLayout before it ends up in a message attribute.
var acceptedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999", // naive datetimes are treated as UTC
	"2006-01-02T15:04:05",
}

// Now returns the current time as a wire-format timestamp string.
func Now() string {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp returns the given time as a wire-format timestamp string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses a datetime attribute value. It accepts RFC 3339
// strings with or without fractional seconds as well as naive datetimes,
// which are interpreted as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Invalid(errors.ErrInvalidDate, value)
}

// NormalizeTimestamp parses the given datetime value and returns it in the
// wire format. The returned error carries the ErrInvalidDate sentinel.
func NormalizeTimestamp(value string) (string, error) {
	t, err := ParseTimestamp(value)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(t), nil
}

// IsValidTimestamp reports whether the given value parses as a datetime.
func IsValidTimestamp(value string) bool {
	_, err := ParseTimestamp(value)
	return err == nil
}
