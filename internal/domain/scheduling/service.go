package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliniq/cliniq/internal/platform/db"
)

// cancelReason is recorded when a delete request soft-cancels an appointment.
const cancelReason = "automatic cancellation on delete"

// Service implements the scheduling engine: schedule CRUD for staff and the
// appointment lifecycle with conflict, capacity and state-machine guards.
// Every appointment mutation runs its checks and its write inside a single
// transaction.
type Service struct {
	schedules    ScheduleRepository
	appointments AppointmentRepository
	history      HistoryRepository
	tx           db.TxRunner
}

// NewService creates a scheduling service.
func NewService(schedules ScheduleRepository, appointments AppointmentRepository, history HistoryRepository, tx db.TxRunner) *Service {
	return &Service{
		schedules:    schedules,
		appointments: appointments,
		history:      history,
		tx:           tx,
	}
}

// CreateSchedule validates and persists a new schedule. Status defaults to
// open and capacity to 1 when not provided.
func (s *Service) CreateSchedule(ctx context.Context, sched *Schedule) error {
	if sched.ProfessionalID == uuid.Nil {
		return &BusinessRuleError{Msg: "professional_id is required"}
	}
	if sched.CareUnitID == uuid.Nil {
		return &BusinessRuleError{Msg: "care_unit_id is required"}
	}
	if err := validateScheduleWindow(sched); err != nil {
		return err
	}
	if sched.Capacity == nil {
		capacity := 1
		sched.Capacity = &capacity
	} else if *sched.Capacity <= 0 {
		return &BusinessRuleError{Msg: "capacity must be positive"}
	}
	if sched.Status == "" {
		sched.Status = ScheduleOpen
	} else {
		status, err := ParseScheduleStatus(string(sched.Status))
		if err != nil {
			return &BusinessRuleError{Msg: err.Error()}
		}
		sched.Status = status
	}
	return s.schedules.Create(ctx, sched)
}

// UpdateSchedule validates and persists changes to a schedule. A nil
// capacity removes the limit.
func (s *Service) UpdateSchedule(ctx context.Context, sched *Schedule) error {
	if err := validateScheduleWindow(sched); err != nil {
		return err
	}
	if sched.Capacity != nil && *sched.Capacity <= 0 {
		return &BusinessRuleError{Msg: "capacity must be positive"}
	}
	if sched.Status != "" {
		status, err := ParseScheduleStatus(string(sched.Status))
		if err != nil {
			return &BusinessRuleError{Msg: err.Error()}
		}
		sched.Status = status
	}
	return s.schedules.Update(ctx, sched)
}

func validateScheduleWindow(sched *Schedule) error {
	if (sched.StartTime == nil) != (sched.EndTime == nil) {
		return &BusinessRuleError{Msg: "start_time and end_time must be provided together"}
	}
	if sched.StartTime != nil && !sched.StartTime.Before(*sched.EndTime) {
		return &BusinessRuleError{Msg: "start_time must be before end_time"}
	}
	return nil
}

// GetSchedule fetches a schedule by ID.
func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

// DeleteSchedule removes a schedule. Appointments keep their dangling
// reference; reads of the schedule then report NotFound.
func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	return s.schedules.Delete(ctx, id)
}

// ListSchedules returns a page of schedules with the total count.
func (s *Service) ListSchedules(ctx context.Context, limit, offset int) ([]*Schedule, int, error) {
	return s.schedules.List(ctx, limit, offset)
}

// ListSchedulesByProfessional returns a page of a professional's schedules.
func (s *Service) ListSchedulesByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Schedule, int, error) {
	return s.schedules.ListByProfessional(ctx, professionalID, limit, offset)
}

// CreateAppointment books a new appointment. Status defaults to requested.
// When a schedule is referenced it must exist, be open, and contain the
// appointment window; a confirmed booking also consumes schedule capacity.
// The professional-overlap check runs before the schedule-overlap check.
func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return &BusinessRuleError{Msg: "patient_id is required"}
	}
	if a.ProfessionalID == uuid.Nil {
		return &BusinessRuleError{Msg: "professional_id is required"}
	}
	if a.CareUnitID == uuid.Nil {
		return &BusinessRuleError{Msg: "care_unit_id is required"}
	}
	if err := validateAppointmentWindow(a.StartTime, a.EndTime); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = StatusRequested
	} else {
		status, err := ParseStatus(string(a.Status))
		if err != nil {
			return &BusinessRuleError{Msg: err.Error()}
		}
		a.Status = status
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if a.ScheduleID != nil {
			sched, err := s.schedules.GetByIDForUpdate(ctx, *a.ScheduleID)
			if err != nil {
				return err
			}
			if err := checkScheduleOpen(sched); err != nil {
				return err
			}
			if a.StartTime != nil {
				if err := checkWithinSchedule(sched, *a.StartTime, *a.EndTime); err != nil {
					return err
				}
			}
			if a.Status == StatusConfirmed {
				if err := s.checkCapacity(ctx, sched, nil); err != nil {
					return err
				}
			}
		}
		if a.StartTime != nil {
			if err := s.checkProfessionalOverlap(ctx, a.ProfessionalID, *a.StartTime, *a.EndTime, nil); err != nil {
				return err
			}
			if a.ScheduleID != nil {
				if err := s.checkScheduleOverlap(ctx, *a.ScheduleID, *a.StartTime, *a.EndTime, nil); err != nil {
					return err
				}
			}
		}
		return s.appointments.Create(ctx, a)
	})
}

// UpdateAppointment applies a partial update to an appointment. Guards run
// against the effective values, the merge of the stored row and the request.
// A non-empty reason records an audit entry when status or window changed.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, upd AppointmentUpdate, reason string) (*Appointment, error) {
	var newStatus *Status
	if upd.Status != nil {
		status, err := ParseStatus(*upd.Status)
		if err != nil {
			return nil, &BusinessRuleError{Msg: err.Error()}
		}
		newStatus = &status
	}

	var result *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.appointments.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		prev := *current

		next := *current
		if upd.ProfessionalID != nil {
			next.ProfessionalID = *upd.ProfessionalID
		}
		if upd.ScheduleID != nil {
			next.ScheduleID = upd.ScheduleID
		}
		if upd.StartTime != nil {
			next.StartTime = upd.StartTime
		}
		if upd.EndTime != nil {
			next.EndTime = upd.EndTime
		}
		if upd.Channel != nil {
			next.Channel = upd.Channel
		}
		if upd.Notes != nil {
			next.Notes = upd.Notes
		}
		if newStatus != nil {
			next.Status = *newStatus
		}

		if err := validateAppointmentWindow(next.StartTime, next.EndTime); err != nil {
			return err
		}

		statusChanged := next.Status != current.Status
		if statusChanged {
			if err := ValidateTransition(current.Status, next.Status); err != nil {
				return err
			}
		}

		scheduleChanged := upd.ScheduleID != nil &&
			(current.ScheduleID == nil || *upd.ScheduleID != *current.ScheduleID)
		timeChanged := !timePtrEqual(current.StartTime, next.StartTime) ||
			!timePtrEqual(current.EndTime, next.EndTime)
		professionalChanged := next.ProfessionalID != current.ProfessionalID
		becomingConfirmed := next.Status == StatusConfirmed && statusChanged

		var sched *Schedule
		if next.ScheduleID != nil && (scheduleChanged || timeChanged || becomingConfirmed) {
			sched, err = s.schedules.GetByIDForUpdate(ctx, *next.ScheduleID)
			if err != nil {
				return err
			}
		}
		if sched != nil && (scheduleChanged || becomingConfirmed) {
			if err := checkScheduleOpen(sched); err != nil {
				return err
			}
		}
		if sched != nil && (scheduleChanged || timeChanged) && next.StartTime != nil {
			if err := checkWithinSchedule(sched, *next.StartTime, *next.EndTime); err != nil {
				return err
			}
		}
		if sched != nil && (becomingConfirmed || (scheduleChanged && next.Status == StatusConfirmed)) {
			if err := s.checkCapacity(ctx, sched, &current.ID); err != nil {
				return err
			}
		}
		if next.StartTime != nil && (timeChanged || professionalChanged) {
			if err := s.checkProfessionalOverlap(ctx, next.ProfessionalID, *next.StartTime, *next.EndTime, &current.ID); err != nil {
				return err
			}
		}
		if next.StartTime != nil && next.ScheduleID != nil && (timeChanged || scheduleChanged) {
			if err := s.checkScheduleOverlap(ctx, *next.ScheduleID, *next.StartTime, *next.EndTime, &current.ID); err != nil {
				return err
			}
		}

		if err := s.appointments.Update(ctx, &next); err != nil {
			return err
		}
		if entry := buildHistory(&prev, &next, reason); entry != nil {
			if err := s.history.Append(ctx, entry); err != nil {
				return err
			}
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelAppointment soft-cancels an appointment and records an audit entry.
// Appointments already in a terminal state are left untouched; they are
// historical records and the cancel is a no-op.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var result *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.appointments.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.Active() {
			result = current
			return nil
		}

		prev := *current
		next := *current
		next.Status = StatusCancelled
		if err := s.appointments.Update(ctx, &next); err != nil {
			return err
		}
		if entry := buildHistory(&prev, &next, cancelReason); entry != nil {
			if err := s.history.Append(ctx, entry); err != nil {
				return err
			}
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetAppointment fetches an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// ListAppointmentsByPatient returns a page of a patient's appointments.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

// ListAppointmentsByProfessional returns a page of a professional's appointments.
func (s *Service) ListAppointmentsByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByProfessional(ctx, professionalID, limit, offset)
}

// ListAppointmentsBySchedule returns a page of a schedule's appointments.
func (s *Service) ListAppointmentsBySchedule(ctx context.Context, scheduleID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListBySchedule(ctx, scheduleID, limit, offset)
}

// ListAppointmentHistory returns a page of an appointment's audit trail,
// oldest first. The appointment must exist.
func (s *Service) ListAppointmentHistory(ctx context.Context, appointmentID uuid.UUID, limit, offset int) ([]*AppointmentHistory, int, error) {
	if _, err := s.appointments.GetByID(ctx, appointmentID); err != nil {
		return nil, 0, err
	}
	return s.history.ListByAppointment(ctx, appointmentID, limit, offset)
}

func validateAppointmentWindow(start, end *time.Time) error {
	if (start == nil) != (end == nil) {
		return &BusinessRuleError{Msg: "start_time and end_time must be provided together"}
	}
	if start != nil && !start.Before(*end) {
		return &BusinessRuleError{Msg: "start_time must be before end_time"}
	}
	return nil
}

func checkScheduleOpen(sched *Schedule) error {
	if sched.Status != ScheduleOpen {
		return &BusinessRuleError{Msg: fmt.Sprintf("schedule %s is not open for booking (status %s)", sched.ID, sched.Status)}
	}
	return nil
}

func checkWithinSchedule(sched *Schedule, start, end time.Time) error {
	if sched.StartTime == nil || sched.EndTime == nil {
		return &BusinessRuleError{Msg: fmt.Sprintf("schedule %s has no defined time bounds", sched.ID)}
	}
	if start.Before(*sched.StartTime) || end.After(*sched.EndTime) {
		return &BusinessRuleError{Msg: fmt.Sprintf("appointment window is outside schedule %s bounds", sched.ID)}
	}
	return nil
}

func (s *Service) checkCapacity(ctx context.Context, sched *Schedule, excludeID *uuid.UUID) error {
	if sched.Capacity == nil {
		return nil
	}
	count, err := s.appointments.CountConfirmed(ctx, sched.ID, excludeID)
	if err != nil {
		return err
	}
	if count >= *sched.Capacity {
		return &ConflictError{Msg: fmt.Sprintf("schedule %s is at capacity (%d confirmed)", sched.ID, *sched.Capacity)}
	}
	return nil
}

func (s *Service) checkProfessionalOverlap(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) error {
	overlap, err := s.appointments.ExistsOverlapForProfessional(ctx, professionalID, start, end, excludeID)
	if err != nil {
		return err
	}
	if overlap {
		return &ConflictError{Msg: fmt.Sprintf("professional %s already has an appointment in this time window", professionalID)}
	}
	return nil
}

func (s *Service) checkScheduleOverlap(ctx context.Context, scheduleID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) error {
	overlap, err := s.appointments.ExistsOverlapInSchedule(ctx, scheduleID, start, end, excludeID)
	if err != nil {
		return err
	}
	if overlap {
		return &ConflictError{Msg: fmt.Sprintf("time window conflicts with another appointment in schedule %s", scheduleID)}
	}
	return nil
}

// buildHistory returns the audit row for a change, or nil when no reason was
// given or nothing tracked actually changed.
func buildHistory(prev, next *Appointment, reason string) *AppointmentHistory {
	if strings.TrimSpace(reason) == "" {
		return nil
	}
	entry := &AppointmentHistory{AppointmentID: prev.ID, Reason: reason}
	changed := false
	if prev.Status != next.Status {
		prevStatus, newStatus := prev.Status, next.Status
		entry.PrevStatus, entry.NewStatus = &prevStatus, &newStatus
		changed = true
	}
	if !timePtrEqual(prev.StartTime, next.StartTime) {
		entry.PrevStartTime, entry.NewStartTime = prev.StartTime, next.StartTime
		changed = true
	}
	if !timePtrEqual(prev.EndTime, next.EndTime) {
		entry.PrevEndTime, entry.NewEndTime = prev.EndTime, next.EndTime
		changed = true
	}
	if !changed {
		return nil
	}
	return entry
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
