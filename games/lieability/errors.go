package lieability

import "errors"

var (
	ErrPhaseMismatch    = errors.New("action not allowed in current phase")
	ErrUnauthorized     = errors.New("not allowed for this player")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCapacityExceeded = errors.New("game is full")
	ErrNameTaken        = errors.New("name already taken")
	ErrNotReady         = errors.New("game not ready")
	ErrClosed           = errors.New("game closed")
	ErrInternal         = errors.New("internal error")
)
