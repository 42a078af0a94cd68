package scheduling

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NotFoundError indicates a referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// BusinessRuleError indicates a request that is well-formed but violates a
// scheduling rule, such as booking outside a schedule's bounds.
type BusinessRuleError struct {
	Msg string
}

func (e *BusinessRuleError) Error() string {
	return e.Msg
}

// ConflictError indicates the request lost to a competing booking: an
// overlapping appointment or a schedule already at capacity.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// IllegalTransitionError indicates a status change the appointment state
// machine does not permit. Allowed lists the legal targets from From.
type IllegalTransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *IllegalTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot transition appointment from %q to %q: none (terminal state)", e.From, e.To)
	}
	names := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot transition appointment from %q to %q: allowed: %s", e.From, e.To, strings.Join(names, ", "))
}
