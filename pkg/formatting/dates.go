package formatting

import (
	"fmt"
	"time"
)

// ParseBusinessDate parses a calendar date in YYYY-MM-DD form. Business
// dates deliberately carry no time or zone component; the venue's local
// day boundary is applied by the caller.
func ParseBusinessDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid business date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatBusinessDate renders a calendar date as YYYY-MM-DD.
func FormatBusinessDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
