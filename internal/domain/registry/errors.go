package registry

import (
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError indicates the requested record does not exist.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ValidationError indicates a request missing required fields.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
