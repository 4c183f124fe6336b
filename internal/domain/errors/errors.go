package errors

import "errors"

var (
	ErrSessionAcquisition = errors.New("session acquisition failed")
	ErrSnapshotNotFound   = errors.New("snapshot not found")
	ErrNoVenues           = errors.New("no venues registered")
	ErrSourceUnavailable  = errors.New("booking backend unavailable")
)
