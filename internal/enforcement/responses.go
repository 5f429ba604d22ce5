package enforcement

import (
	"encoding/json"
	"slices"
)

// ResponseType describes what a feedback object requires from its owner
// before the item can close.
type ResponseType string

// Valid required response types, in ascending obligation.
const (
	ResponseAcknowledge ResponseType = "acknowledge"
	ResponseExplain     ResponseType = "explain"
	ResponseCorrect     ResponseType = "correct"
	ResponseResolve     ResponseType = "resolve"
)

var responseTypes = []ResponseType{
	ResponseAcknowledge,
	ResponseExplain,
	ResponseCorrect,
	ResponseResolve,
}

// ResponseTypes returns the list of valid response types.
func ResponseTypes() []ResponseType {
	return responseTypes
}

// ExpectsAction reports whether the response type requires more than a
// bare acknowledgement.
func (r ResponseType) ExpectsAction() bool {
	return r != ResponseAcknowledge
}

// UnmarshalJSON validates that the decoded string is a known response type.
func (r *ResponseType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := ResponseType(raw)
	if !slices.Contains(responseTypes, v) {
		return ErrInvalidResponseType
	}
	*r = v
	return nil
}

// ParseResponseType validates a string as a known response type.
func ParseResponseType(s string) (ResponseType, error) {
	v := ResponseType(s)
	if !slices.Contains(responseTypes, v) {
		return "", ErrInvalidResponseType
	}
	return v, nil
}
