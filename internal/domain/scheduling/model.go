package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Schedule is a bounded, capacity-limited booking window owned by one
// professional at one care unit. Schedules are managed by staff; the
// scheduling engine only reads them.
type Schedule struct {
	ID             uuid.UUID      `json:"id"`
	ProfessionalID uuid.UUID      `json:"professional_id"`
	CareUnitID     uuid.UUID      `json:"care_unit_id"`
	StartTime      *time.Time     `json:"start_time,omitempty"`
	EndTime        *time.Time     `json:"end_time,omitempty"`
	Capacity       *int           `json:"capacity,omitempty"`
	Status         ScheduleStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Appointment is a booking for a patient with a professional, optionally
// attached to a schedule and optionally carrying a concrete time window.
// StartTime and EndTime are set or unset together.
type Appointment struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	ProfessionalID uuid.UUID  `json:"professional_id"`
	CareUnitID     uuid.UUID  `json:"care_unit_id"`
	ScheduleID     *uuid.UUID `json:"schedule_id,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Channel        *string    `json:"channel,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AppointmentHistory is one immutable audit row describing a change to an
// appointment. Only the fields that actually changed are populated.
type AppointmentHistory struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	PrevStatus    *Status    `json:"prev_status,omitempty"`
	NewStatus     *Status    `json:"new_status,omitempty"`
	PrevStartTime *time.Time `json:"prev_start_time,omitempty"`
	NewStartTime  *time.Time `json:"new_start_time,omitempty"`
	PrevEndTime   *time.Time `json:"prev_end_time,omitempty"`
	NewEndTime    *time.Time `json:"new_end_time,omitempty"`
	Reason        string     `json:"reason"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AppointmentUpdate carries the fields of an update request. A nil field
// means "leave unchanged".
type AppointmentUpdate struct {
	ProfessionalID *uuid.UUID `json:"professional_id,omitempty"`
	ScheduleID     *uuid.UUID `json:"schedule_id,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Status         *string    `json:"status,omitempty"`
	Channel        *string    `json:"channel,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// IntervalsOverlap reports whether two half-open intervals [s1,e1) and
// [s2,e2) intersect. Intervals that merely touch at a boundary do not
// overlap.
func IntervalsOverlap(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}
