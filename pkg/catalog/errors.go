package catalog

import "errors"

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid catalog client configuration")

	// ErrUnauthorized is returned when the API key is rejected
	ErrUnauthorized = errors.New("unauthorized: invalid catalog API key")

	// ErrUnavailable is returned when the catalog service cannot be reached
	// or answers with a server error
	ErrUnavailable = errors.New("catalog service unavailable")
)
