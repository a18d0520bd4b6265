package backtest

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is returned when the agent answers with a non-success
	// envelope code.
	ErrRejected = errors.New("agent rejected request")
	// ErrEmptyStatus is returned when a status response carries no data.
	ErrEmptyStatus = errors.New("empty job status")
)

// successCode is the envelope code the backend uses for success.
const successCode = 1

func rejected(code int, msg string) error {
	if msg == "" {
		return fmt.Errorf("%w: code %d", ErrRejected, code)
	}
	return fmt.Errorf("%w: code %d: %s", ErrRejected, code, msg)
}
