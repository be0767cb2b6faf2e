package errors

import "errors"

var (
	ErrNotFound = errors.New("waitlist entry not found")
)
