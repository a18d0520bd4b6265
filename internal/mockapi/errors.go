package mockapi

import (
	"errors"
	"fmt"
)

// Sentinel kinds for fake backend errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrNotFound      = errors.New("not found")
	ErrUnknownAction = errors.New("unknown action")

	errMissingID = errors.New("missing or invalid id")
)

func wrapKind(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
