package core

import "errors"

// Error taxonomy shared by services, tools and the HTTP boundary. Wrap with %w and
// match with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrClassifierUnavailable = errors.New("category classifier unavailable")
	ErrModelUnavailable      = errors.New("chat model unavailable")
)
