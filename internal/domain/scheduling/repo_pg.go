package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliniq/cliniq/internal/platform/db"
)

// pgScheduleRepo is the Postgres implementation of ScheduleRepository.
type pgScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewPgScheduleRepo creates a Postgres-backed schedule repository.
func NewPgScheduleRepo(pool *pgxpool.Pool) ScheduleRepository {
	return &pgScheduleRepo{pool: pool}
}

func (r *pgScheduleRepo) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const scheduleCols = `id, professional_id, care_unit_id, start_time, end_time, capacity, status, created_at, updated_at`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	var status string
	err := row.Scan(&s.ID, &s.ProfessionalID, &s.CareUnitID, &s.StartTime, &s.EndTime,
		&s.Capacity, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = ScheduleStatus(status)
	return &s, nil
}

func (r *pgScheduleRepo) Create(ctx context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO schedule (id, professional_id, care_unit_id, start_time, end_time, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		s.ID, s.ProfessionalID, s.CareUnitID, s.StartTime, s.EndTime, s.Capacity, string(s.Status))
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (r *pgScheduleRepo) getByID(ctx context.Context, id uuid.UUID, lock string) (*Schedule, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+scheduleCols+` FROM schedule WHERE id = $1`+lock, id)
	s, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "schedule", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return s, nil
}

func (r *pgScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return r.getByID(ctx, id, "")
}

func (r *pgScheduleRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return r.getByID(ctx, id, " FOR UPDATE")
}

func (r *pgScheduleRepo) Update(ctx context.Context, s *Schedule) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE schedule
		SET professional_id = $2, care_unit_id = $3, start_time = $4, end_time = $5,
		    capacity = $6, status = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.ProfessionalID, s.CareUnitID, s.StartTime, s.EndTime, s.Capacity, string(s.Status))
	if err := row.Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Resource: "schedule", ID: s.ID}
		}
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

func (r *pgScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM schedule WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "schedule", ID: id}
	}
	return nil
}

func (r *pgScheduleRepo) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Schedule, int, error) {
	var total int
	countArgs := args
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM schedule`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+scheduleCols+` FROM schedule%s ORDER BY start_time NULLS LAST, id LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		schedules = append(schedules, s)
	}
	return schedules, total, rows.Err()
}

func (r *pgScheduleRepo) List(ctx context.Context, limit, offset int) ([]*Schedule, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *pgScheduleRepo) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Schedule, int, error) {
	return r.list(ctx, " WHERE professional_id = $1", []interface{}{professionalID}, limit, offset)
}

// pgAppointmentRepo is the Postgres implementation of AppointmentRepository.
type pgAppointmentRepo struct {
	pool *pgxpool.Pool
}

// NewPgAppointmentRepo creates a Postgres-backed appointment repository.
func NewPgAppointmentRepo(pool *pgxpool.Pool) AppointmentRepository {
	return &pgAppointmentRepo{pool: pool}
}

func (r *pgAppointmentRepo) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const appointmentCols = `id, patient_id, professional_id, care_unit_id, schedule_id, start_time, end_time, channel, notes, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.ProfessionalID, &a.CareUnitID, &a.ScheduleID,
		&a.StartTime, &a.EndTime, &a.Channel, &a.Notes, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

// asConflict maps exclusion and unique violations raised by the storage
// backstop constraints to the domain conflict error.
func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
		return &ConflictError{Msg: "appointment time window is no longer available"}
	}
	return err
}

func (r *pgAppointmentRepo) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, professional_id, care_unit_id, schedule_id, start_time, end_time, channel, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.ProfessionalID, a.CareUnitID, a.ScheduleID,
		a.StartTime, a.EndTime, a.Channel, a.Notes, string(a.Status))
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		if conflict := asConflict(err); conflict != err {
			return conflict
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *pgAppointmentRepo) getByID(ctx context.Context, id uuid.UUID, lock string) (*Appointment, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE id = $1`+lock, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "appointment", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *pgAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.getByID(ctx, id, "")
}

func (r *pgAppointmentRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.getByID(ctx, id, " FOR UPDATE")
}

func (r *pgAppointmentRepo) Update(ctx context.Context, a *Appointment) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointment
		SET professional_id = $2, schedule_id = $3, start_time = $4, end_time = $5,
		    channel = $6, notes = $7, status = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.ProfessionalID, a.ScheduleID, a.StartTime, a.EndTime,
		a.Channel, a.Notes, string(a.Status))
	if err := row.Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Resource: "appointment", ID: a.ID}
		}
		if conflict := asConflict(err); conflict != err {
			return conflict
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (r *pgAppointmentRepo) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+appointmentCols+` FROM appointment%s ORDER BY start_time NULLS LAST, created_at LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appointments = append(appointments, a)
	}
	return appointments, total, rows.Err()
}

func (r *pgAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, " WHERE patient_id = $1", []interface{}{patientID}, limit, offset)
}

func (r *pgAppointmentRepo) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, " WHERE professional_id = $1", []interface{}{professionalID}, limit, offset)
}

func (r *pgAppointmentRepo) ListBySchedule(ctx context.Context, scheduleID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, " WHERE schedule_id = $1", []interface{}{scheduleID}, limit, offset)
}

// Interval predicates use strict intersection: windows that touch at a
// boundary do not conflict. Only requested and confirmed appointments block.

func (r *pgAppointmentRepo) ExistsOverlapInSchedule(ctx context.Context, scheduleID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE schedule_id = $1
			  AND status IN ('requested', 'confirmed')
			  AND start_time < $3 AND end_time > $2
			  AND ($4::uuid IS NULL OR id <> $4)
		)`,
		scheduleID, start, end, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check schedule overlap: %w", err)
	}
	return exists, nil
}

func (r *pgAppointmentRepo) ExistsOverlapForProfessional(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE professional_id = $1
			  AND status IN ('requested', 'confirmed')
			  AND start_time < $3 AND end_time > $2
			  AND ($4::uuid IS NULL OR id <> $4)
		)`,
		professionalID, start, end, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check professional overlap: %w", err)
	}
	return exists, nil
}

func (r *pgAppointmentRepo) CountConfirmed(ctx context.Context, scheduleID uuid.UUID, excludeID *uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment
		WHERE schedule_id = $1
		  AND status = 'confirmed'
		  AND ($2::uuid IS NULL OR id <> $2)`,
		scheduleID, excludeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count confirmed appointments: %w", err)
	}
	return count, nil
}

// pgHistoryRepo is the Postgres implementation of HistoryRepository.
type pgHistoryRepo struct {
	pool *pgxpool.Pool
}

// NewPgHistoryRepo creates a Postgres-backed appointment history repository.
func NewPgHistoryRepo(pool *pgxpool.Pool) HistoryRepository {
	return &pgHistoryRepo{pool: pool}
}

func (r *pgHistoryRepo) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func statusPtr(s *Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func (r *pgHistoryRepo) Append(ctx context.Context, h *AppointmentHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment_history
			(id, appointment_id, prev_status, new_status, prev_start_time, new_start_time, prev_end_time, new_end_time, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		h.ID, h.AppointmentID, statusPtr(h.PrevStatus), statusPtr(h.NewStatus),
		h.PrevStartTime, h.NewStartTime, h.PrevEndTime, h.NewEndTime, h.Reason)
	if err := row.Scan(&h.CreatedAt); err != nil {
		return fmt.Errorf("insert appointment history: %w", err)
	}
	return nil
}

func (r *pgHistoryRepo) ListByAppointment(ctx context.Context, appointmentID uuid.UUID, limit, offset int) ([]*AppointmentHistory, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment_history WHERE appointment_id = $1`, appointmentID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointment history: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, prev_status, new_status, prev_start_time, new_start_time, prev_end_time, new_end_time, reason, created_at
		FROM appointment_history
		WHERE appointment_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`,
		appointmentID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointment history: %w", err)
	}
	defer rows.Close()

	var entries []*AppointmentHistory
	for rows.Next() {
		var h AppointmentHistory
		var prevStatus, newStatus *string
		if err := rows.Scan(&h.ID, &h.AppointmentID, &prevStatus, &newStatus,
			&h.PrevStartTime, &h.NewStartTime, &h.PrevEndTime, &h.NewEndTime, &h.Reason, &h.CreatedAt); err != nil {
			return nil, 0, err
		}
		if prevStatus != nil {
			s := Status(*prevStatus)
			h.PrevStatus = &s
		}
		if newStatus != nil {
			s := Status(*newStatus)
			h.NewStatus = &s
		}
		entries = append(entries, &h)
	}
	return entries, total, rows.Err()
}
