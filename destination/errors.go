package destination

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDestination = errors.New("empty destination")
	ErrUnexpectedKey    = errors.New("unexpected key")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrInvalidID        = errors.New("id is not a device identifier")
)

// ParseError is returned for destination text that cannot be accepted.
// Key is set when a specific key caused the failure.
type ParseError struct {
	Input string
	Key   string
	Err   error
}

func (e *ParseError) Error() string {
	if errors.Is(e.Err, ErrEmptyDestination) {
		return "invalid destination: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid destination: %s <%s>", e.Err, e.Key)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func unexpectedKey(input, key string) error {
	return &ParseError{Input: input, Key: key, Err: ErrUnexpectedKey}
}
