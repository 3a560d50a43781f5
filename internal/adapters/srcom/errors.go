package srcom

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is matched by a StatusError with status 404.
	ErrNotFound = errors.New("srcom: not found")
	// ErrMissingGame is returned when a category does not link to its game.
	ErrMissingGame = errors.New("srcom: category has no game")
	// ErrNoAPIKey is returned by calls that need an account key.
	ErrNoAPIKey = errors.New("srcom: api key required")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Status  int
	URL     string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("srcom: GET %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("srcom: GET %s: HTTP %d: %s", e.URL, e.Status, e.Message)
}

// Is matches ErrNotFound for 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}
