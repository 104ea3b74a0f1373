package query

import "errors"

var (
	ErrNotInitialized    = errors.New("data not initialized yet, please try again in a few minutes")
	ErrTimestampNotFound = errors.New("no snapshot for timestamp")
	ErrPositionNotFound  = errors.New("position not found")
	ErrInvalidStart      = errors.New("start index out of range")
	ErrArchiveDisabled   = errors.New("stats archive is not enabled")
)
