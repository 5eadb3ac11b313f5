package router

import (
	"errors"
	"fmt"
)

// ErrNoProvidersAvailable is returned when every route in the chain was
// skipped before any attempt was made (unregistered providers, open
// circuits).
var ErrNoProvidersAvailable = errors.New("no providers available")

// RouteExhaustedError is returned when every route in the chain was
// attempted and failed. It surfaces the last concrete underlying error.
type RouteExhaustedError struct {
	LastErr error
}

func (e *RouteExhaustedError) Error() string {
	return fmt.Sprintf("all routes exhausted: %v", e.LastErr)
}

func (e *RouteExhaustedError) Unwrap() error {
	return e.LastErr
}
