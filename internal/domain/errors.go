package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidEvent     = errors.New("invalid event")
	ErrUnknownEventKind = errors.New("unknown event kind")
	ErrDuplicateEvent   = errors.New("duplicate event")
	ErrInvalidRequest   = errors.New("invalid request")
)
