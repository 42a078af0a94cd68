package scheduling

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an appointment. Input is parsed
// case-insensitively; values are stored lower-case.
type Status string

const (
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

var validStatuses = map[Status]bool{
	StatusRequested: true,
	StatusConfirmed: true,
	StatusFulfilled: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

// ParseStatus normalizes and validates an appointment status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !validStatuses[st] {
		return "", fmt.Errorf("invalid appointment status: %q", s)
	}
	return st, nil
}

// allowedTransitions is the appointment state machine. A status missing a
// target set, or mapped to an empty one, is terminal.
var allowedTransitions = map[Status][]Status{
	StatusRequested: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusFulfilled, StatusCancelled, StatusNoShow},
	StatusFulfilled: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// ValidateTransition checks that current may move to proposed. A
// self-transition is always legal and treated as a no-op by callers.
func ValidateTransition(current, proposed Status) error {
	if current == proposed {
		return nil
	}
	allowed := allowedTransitions[current]
	for _, next := range allowed {
		if next == proposed {
			return nil
		}
	}
	return &IllegalTransitionError{From: current, To: proposed, Allowed: allowed}
}

// Active reports whether the appointment still occupies its time window for
// conflict purposes.
func (s Status) Active() bool {
	return s == StatusRequested || s == StatusConfirmed
}

// Terminal reports whether no further transitions are legal.
func (s Status) Terminal() bool {
	return validStatuses[s] && len(allowedTransitions[s]) == 0
}

// ScheduleStatus is the booking availability of a schedule. Only open
// schedules accept new or re-confirmed appointments.
type ScheduleStatus string

const (
	ScheduleOpen     ScheduleStatus = "open"
	ScheduleClosed   ScheduleStatus = "closed"
	ScheduleReserved ScheduleStatus = "reserved"
)

var validScheduleStatuses = map[ScheduleStatus]bool{
	ScheduleOpen:     true,
	ScheduleClosed:   true,
	ScheduleReserved: true,
}

// ParseScheduleStatus normalizes and validates a schedule status string.
func ParseScheduleStatus(s string) (ScheduleStatus, error) {
	st := ScheduleStatus(strings.ToLower(strings.TrimSpace(s)))
	if !validScheduleStatuses[st] {
		return "", fmt.Errorf("invalid schedule status: %q", s)
	}
	return st, nil
}
