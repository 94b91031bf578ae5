package storage

import "errors"

var (
	// ErrDuplicateHandle reports an account creation conflict.
	ErrDuplicateHandle = errors.New("handle already taken")

	// ErrUnknownAccount reports an operation against a handle that has
	// no account or emotion log.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrInvalidHandle reports a handle unsafe for naming a storage
	// unit. Handles are never interpolated into SQL unvalidated.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrInvalidLabel reports an attempt to append a label outside the
	// 7-class vocabulary, including the Undetected sentinel.
	ErrInvalidLabel = errors.New("invalid emotion label")

	// ErrUnknownEntry reports a similarity lookup against a missing
	// log entry.
	ErrUnknownEntry = errors.New("unknown log entry")
)
