package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrMissingCaller  = errors.New("missing caller identity")
	ErrRoleNotAllowed = errors.New("caller role not allowed")
	ErrNotSelf        = errors.New("judges may only act as themselves")
)
