package domain

import "errors"

var (
	ErrSessionNotFound        = errors.New("session_not_found")
	ErrSessionRevoked         = errors.New("session_revoked")
	ErrCannotTerminateCurrent = errors.New("cannot_terminate_current")
	ErrStoreUnavailable       = errors.New("store_unavailable")
	ErrRevocationTableMissing = errors.New("revocation_table_missing")
)
