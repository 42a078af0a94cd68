package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScheduleRepository handles schedule persistence.
type ScheduleRepository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	// GetByIDForUpdate locks the schedule row for the duration of the
	// surrounding transaction so capacity and overlap checks stay
	// consistent with the write they guard.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Schedule, int, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Schedule, int, error)
}

// AppointmentRepository handles appointment persistence and the conflict
// queries the engine runs before writing.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID, limit, offset int) ([]*Appointment, int, error)

	// ExistsOverlapInSchedule reports whether any active appointment in
	// the schedule intersects [start, end). excludeID, when set, leaves
	// that appointment out of the check.
	ExistsOverlapInSchedule(ctx context.Context, scheduleID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	// ExistsOverlapForProfessional is the same check scoped to all of a
	// professional's active appointments, across schedules.
	ExistsOverlapForProfessional(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	// CountConfirmed counts confirmed appointments in the schedule,
	// excluding excludeID when set.
	CountConfirmed(ctx context.Context, scheduleID uuid.UUID, excludeID *uuid.UUID) (int, error)
}

// HistoryRepository appends and reads the append-only appointment audit
// trail. Rows are never updated or deleted.
type HistoryRepository interface {
	Append(ctx context.Context, h *AppointmentHistory) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID, limit, offset int) ([]*AppointmentHistory, int, error)
}
