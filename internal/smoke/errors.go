package smoke

import "errors"

// Sentinel kinds for smoke failures.
var (
	ErrStep     = errors.New("smoke step failed")
	ErrRejected = errors.New("backend rejected request")
	ErrMismatch = errors.New("unexpected backend state")
)
