package store

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is local ISO-8601 without zone, microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Timestamp is a time persisted in TimestampLayout. RFC 3339 input is
// accepted too.
type Timestamp struct {
	time.Time
}

// Now returns the current local time truncated to microseconds.
func Now() Timestamp {
	return Timestamp{time.Now().Truncate(time.Microsecond)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Local().Format(TimestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	s = strings.Trim(s, `"`)
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed.Local()
		return nil
	}
	// isoformat() omits the fraction when it is zero
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
