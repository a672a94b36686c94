package repository

import "errors"

// Sentinel kinds for projection store errors.
var (
	ErrInvalidLimit  = errors.New("invalid query limit")
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrEmptyDSN      = errors.New("database url is empty")
)
