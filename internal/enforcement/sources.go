package enforcement

import (
	"encoding/json"
	"slices"
)

// Source identifies the kind of detector that produced a signal.
type Source string

// Valid detection sources.
const (
	SourceRule        Source = "rule"
	SourceStatistical Source = "statistical"
	SourceAI          Source = "ai"
)

var sources = []Source{
	SourceRule,
	SourceStatistical,
	SourceAI,
}

// Sources returns the list of valid detection sources.
func Sources() []Source {
	return sources
}

// UnmarshalJSON validates that the decoded string is a known source.
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Source(raw)
	if !slices.Contains(sources, v) {
		return ErrInvalidSource
	}
	*s = v
	return nil
}

// ParseSource validates a string as a known detection source.
func ParseSource(s string) (Source, error) {
	v := Source(s)
	if !slices.Contains(sources, v) {
		return "", ErrInvalidSource
	}
	return v, nil
}
