package enforcement

import (
	"encoding/json"
	"slices"
)

// Severity grades how urgent a signal or feedback object is.
type Severity string

// Valid severities, in ascending urgency.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severities = []Severity{
	SeverityInfo,
	SeverityWarning,
	SeverityCritical,
}

// Severities returns the list of valid severities in ascending urgency.
func Severities() []Severity {
	return severities
}

// Rank returns the severity's position in the urgency order: info 0,
// warning 1, critical 2. Unknown severities rank below info.
func (s Severity) Rank() int {
	return slices.Index(severities, s)
}

// UnmarshalJSON validates that the decoded string is a known severity.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Severity(raw)
	if !slices.Contains(severities, v) {
		return ErrInvalidSeverity
	}
	*s = v
	return nil
}

// ParseSeverity validates a string as a known severity.
func ParseSeverity(s string) (Severity, error) {
	v := Severity(s)
	if !slices.Contains(severities, v) {
		return "", ErrInvalidSeverity
	}
	return v, nil
}
