package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// stubTx runs the function directly; the mocks below have no transactions.
type stubTx struct{}

func (stubTx) InTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type mockScheduleRepo struct {
	schedules map[uuid.UUID]*Schedule
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{schedules: make(map[uuid.UUID]*Schedule)}
}

func (m *mockScheduleRepo) Create(ctx context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

func (m *mockScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return nil, &NotFoundError{Resource: "schedule", ID: id}
	}
	cp := *s
	return &cp, nil
}

func (m *mockScheduleRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return m.GetByID(ctx, id)
}

func (m *mockScheduleRepo) Update(ctx context.Context, s *Schedule) error {
	if _, ok := m.schedules[s.ID]; !ok {
		return &NotFoundError{Resource: "schedule", ID: s.ID}
	}
	s.UpdatedAt = time.Now()
	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.schedules[id]; !ok {
		return &NotFoundError{Resource: "schedule", ID: id}
	}
	delete(m.schedules, id)
	return nil
}

func (m *mockScheduleRepo) List(ctx context.Context, limit, offset int) ([]*Schedule, int, error) {
	var all []*Schedule
	for _, s := range m.schedules {
		cp := *s
		all = append(all, &cp)
	}
	return all, len(all), nil
}

func (m *mockScheduleRepo) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Schedule, int, error) {
	var out []*Schedule
	for _, s := range m.schedules {
		if s.ProfessionalID == professionalID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

type mockAppointmentRepo struct {
	appointments map[uuid.UUID]*Appointment
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockAppointmentRepo) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, &NotFoundError{Resource: "appointment", ID: id}
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAppointmentRepo) Update(ctx context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return &NotFoundError{Resource: "appointment", ID: a.ID}
	}
	a.UpdatedAt = time.Now()
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockAppointmentRepo) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appointments {
		if a.ProfessionalID == professionalID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockAppointmentRepo) ListBySchedule(ctx context.Context, scheduleID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appointments {
		if a.ScheduleID != nil && *a.ScheduleID == scheduleID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockAppointmentRepo) ExistsOverlapInSchedule(ctx context.Context, scheduleID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	for _, a := range m.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.ScheduleID == nil || *a.ScheduleID != scheduleID || !a.Status.Active() || a.StartTime == nil {
			continue
		}
		if IntervalsOverlap(*a.StartTime, *a.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAppointmentRepo) ExistsOverlapForProfessional(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	for _, a := range m.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.ProfessionalID != professionalID || !a.Status.Active() || a.StartTime == nil {
			continue
		}
		if IntervalsOverlap(*a.StartTime, *a.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAppointmentRepo) CountConfirmed(ctx context.Context, scheduleID uuid.UUID, excludeID *uuid.UUID) (int, error) {
	count := 0
	for _, a := range m.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.ScheduleID != nil && *a.ScheduleID == scheduleID && a.Status == StatusConfirmed {
			count++
		}
	}
	return count, nil
}

type mockHistoryRepo struct {
	entries []*AppointmentHistory
}

func (m *mockHistoryRepo) Append(ctx context.Context, h *AppointmentHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	h.CreatedAt = time.Now()
	cp := *h
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockHistoryRepo) ListByAppointment(ctx context.Context, appointmentID uuid.UUID, limit, offset int) ([]*AppointmentHistory, int, error) {
	var out []*AppointmentHistory
	for _, h := range m.entries {
		if h.AppointmentID == appointmentID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func newTestService() (*Service, *mockScheduleRepo, *mockAppointmentRepo, *mockHistoryRepo) {
	schedules := newMockScheduleRepo()
	appointments := newMockAppointmentRepo()
	history := &mockHistoryRepo{}
	svc := NewService(schedules, appointments, history, stubTx{})
	return svc, schedules, appointments, history
}

var testDay = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return testDay.Add(time.Duration(minutes) * time.Minute)
}

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(v int) *int              { return &v }
func strPtr(s string) *string        { return &s }

func seedSchedule(repo *mockScheduleRepo, capacity *int, status ScheduleStatus, start, end *time.Time) *Schedule {
	s := &Schedule{
		ID:             uuid.New(),
		ProfessionalID: uuid.New(),
		CareUnitID:     uuid.New(),
		StartTime:      start,
		EndTime:        end,
		Capacity:       capacity,
		Status:         status,
	}
	repo.schedules[s.ID] = s
	return s
}

func newAppointment(scheduleID *uuid.UUID, professionalID uuid.UUID, start, end int) *Appointment {
	return &Appointment{
		PatientID:      uuid.New(),
		ProfessionalID: professionalID,
		CareUnitID:     uuid.New(),
		ScheduleID:     scheduleID,
		StartTime:      timePtr(at(start)),
		EndTime:        timePtr(at(end)),
	}
}

func TestCreateAppointmentDefaultsToRequested(t *testing.T) {
	svc, _, appointments, _ := newTestService()

	a := newAppointment(nil, uuid.New(), 0, 30)
	if err := svc.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusRequested {
		t.Errorf("expected default status requested, got %s", a.Status)
	}
	if _, ok := appointments.appointments[a.ID]; !ok {
		t.Error("appointment was not persisted")
	}
}

func TestCreateAppointmentNormalizesStatusCase(t *testing.T) {
	svc, _, _, _ := newTestService()

	a := newAppointment(nil, uuid.New(), 0, 30)
	a.Status = "Confirmed"
	if err := svc.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusConfirmed {
		t.Errorf("expected lower-case confirmed, got %q", a.Status)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		build func() *Appointment
	}{
		{"missing patient", func() *Appointment {
			a := newAppointment(nil, uuid.New(), 0, 30)
			a.PatientID = uuid.Nil
			return a
		}},
		{"missing professional", func() *Appointment {
			a := newAppointment(nil, uuid.New(), 0, 30)
			a.ProfessionalID = uuid.Nil
			return a
		}},
		{"missing care unit", func() *Appointment {
			a := newAppointment(nil, uuid.New(), 0, 30)
			a.CareUnitID = uuid.Nil
			return a
		}},
		{"start without end", func() *Appointment {
			a := newAppointment(nil, uuid.New(), 0, 30)
			a.EndTime = nil
			return a
		}},
		{"inverted window", func() *Appointment {
			return newAppointment(nil, uuid.New(), 30, 0)
		}},
		{"empty window", func() *Appointment {
			return newAppointment(nil, uuid.New(), 30, 30)
		}},
		{"unknown status", func() *Appointment {
			a := newAppointment(nil, uuid.New(), 0, 30)
			a.Status = "booked"
			return a
		}},
	}
	for _, tc := range cases {
		err := svc.CreateAppointment(ctx, tc.build())
		var ruleErr *BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Errorf("%s: expected BusinessRuleError, got %v", tc.name, err)
		}
	}
}

func TestCreateAppointmentScheduleNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	missing := uuid.New()
	a := newAppointment(&missing, uuid.New(), 0, 30)
	err := svc.CreateAppointment(context.Background(), a)
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCreateAppointmentScheduleNotOpen(t *testing.T) {
	svc, schedules, _, _ := newTestService()

	for _, status := range []ScheduleStatus{ScheduleClosed, ScheduleReserved} {
		sched := seedSchedule(schedules, intPtr(1), status, timePtr(at(0)), timePtr(at(60)))
		a := newAppointment(&sched.ID, sched.ProfessionalID, 0, 30)
		err := svc.CreateAppointment(context.Background(), a)
		var ruleErr *BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Errorf("status %s: expected BusinessRuleError, got %v", status, err)
		}
	}
}

func TestCreateAppointmentScheduleWithoutBounds(t *testing.T) {
	svc, schedules, _, _ := newTestService()

	sched := seedSchedule(schedules, intPtr(1), ScheduleOpen, nil, nil)
	a := newAppointment(&sched.ID, sched.ProfessionalID, 0, 30)
	err := svc.CreateAppointment(context.Background(), a)
	var ruleErr *BusinessRuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected BusinessRuleError, got %v", err)
	}
	if !strings.Contains(err.Error(), "time bounds") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestCreateAppointmentOutsideScheduleBounds(t *testing.T) {
	svc, schedules, _, _ := newTestService()

	sched := seedSchedule(schedules, intPtr(1), ScheduleOpen, timePtr(at(0)), timePtr(at(60)))
	for _, window := range [][2]int{{-15, 15}, {45, 75}} {
		a := newAppointment(&sched.ID, sched.ProfessionalID, window[0], window[1])
		err := svc.CreateAppointment(context.Background(), a)
		var ruleErr *BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Errorf("window %v: expected BusinessRuleError, got %v", window, err)
		}
	}
}

func TestCreateAppointmentProfessionalOverlap(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	professional := uuid.New()

	a := newAppointment(nil, professional, 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := newAppointment(nil, professional, 15, 45)
	err := svc.CreateAppointment(ctx, b)
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestCreateAppointmentBoundaryTouchDoesNotConflict(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	professional := uuid.New()

	a := newAppointment(nil, professional, 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := newAppointment(nil, professional, 30, 60)
	if err := svc.CreateAppointment(ctx, b); err != nil {
		t.Fatalf("expected back-to-back booking to succeed, got %v", err)
	}
}

func TestCreateAppointmentInactiveDoesNotBlock(t *testing.T) {
	svc, _, appointments, _ := newTestService()
	ctx := context.Background()
	professional := uuid.New()

	for _, status := range []Status{StatusCancelled, StatusFulfilled, StatusNoShow} {
		old := newAppointment(nil, professional, 0, 30)
		old.ID = uuid.New()
		old.Status = status
		appointments.appointments[old.ID] = old

		a := newAppointment(nil, professional, 0, 30)
		if err := svc.CreateAppointment(ctx, a); err != nil {
			t.Errorf("status %s: expected no conflict, got %v", status, err)
		}
		delete(appointments.appointments, a.ID)
		delete(appointments.appointments, old.ID)
	}
}

func TestCreateAppointmentScheduleOverlapAcrossProfessionals(t *testing.T) {
	svc, schedules, _, _ := newTestService()
	ctx := context.Background()

	sched := seedSchedule(schedules, intPtr(5), ScheduleOpen, timePtr(at(0)), timePtr(at(60)))

	a := newAppointment(&sched.ID, uuid.New(), 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := newAppointment(&sched.ID, uuid.New(), 15, 45)
	err := svc.CreateAppointment(ctx, b)
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestCreateAppointmentCapacityBoundary(t *testing.T) {
	svc, schedules, appointments, _ := newTestService()
	ctx := context.Background()

	sched := seedSchedule(schedules, intPtr(2), ScheduleOpen, timePtr(at(0)), timePtr(at(240)))

	confirmed := newAppointment(&sched.ID, uuid.New(), 0, 30)
	confirmed.ID = uuid.New()
	confirmed.Status = StatusConfirmed
	appointments.appointments[confirmed.ID] = confirmed

	// 1 of 2 seats taken: a direct confirmed create succeeds.
	second := newAppointment(&sched.ID, uuid.New(), 60, 90)
	second.Status = StatusConfirmed
	if err := svc.CreateAppointment(ctx, second); err != nil {
		t.Fatalf("expected create below capacity to succeed, got %v", err)
	}

	// Both seats taken: the next confirmed create conflicts even though its
	// window is free.
	third := newAppointment(&sched.ID, uuid.New(), 120, 150)
	third.Status = StatusConfirmed
	err := svc.CreateAppointment(ctx, third)
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError at capacity, got %v", err)
	}

	// A requested create is not capacity-gated.
	fourth := newAppointment(&sched.ID, uuid.New(), 180, 210)
	if err := svc.CreateAppointment(ctx, fourth); err != nil {
		t.Fatalf("expected requested create to bypass capacity, got %v", err)
	}
}

func TestCreateAppointmentUnlimitedCapacity(t *testing.T) {
	svc, schedules, appointments, _ := newTestService()
	ctx := context.Background()

	sched := seedSchedule(schedules, nil, ScheduleOpen, timePtr(at(0)), timePtr(at(240)))
	for i := 0; i < 3; i++ {
		confirmed := newAppointment(&sched.ID, uuid.New(), i*30, i*30+30)
		confirmed.ID = uuid.New()
		confirmed.Status = StatusConfirmed
		appointments.appointments[confirmed.ID] = confirmed
	}

	a := newAppointment(&sched.ID, uuid.New(), 180, 210)
	a.Status = StatusConfirmed
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("expected unlimited capacity to admit, got %v", err)
	}
}

func TestUpdateAppointmentConfirm(t *testing.T) {
	svc, _, _, history := newTestService()
	ctx := context.Background()

	a := newAppointment(nil, uuid.New(), 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{Status: strPtr("CONFIRMED")}, "patient called back")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("expected confirmed, got %s", updated.Status)
	}
	if len(history.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history.entries))
	}
	entry := history.entries[0]
	if entry.PrevStatus == nil || *entry.PrevStatus != StatusRequested {
		t.Errorf("expected prev status requested, got %v", entry.PrevStatus)
	}
	if entry.NewStatus == nil || *entry.NewStatus != StatusConfirmed {
		t.Errorf("expected new status confirmed, got %v", entry.NewStatus)
	}
	if entry.PrevStartTime != nil || entry.NewStartTime != nil {
		t.Error("expected unchanged time fields to stay nil in history")
	}
	if entry.Reason != "patient called back" {
		t.Errorf("unexpected reason %q", entry.Reason)
	}
}

func TestUpdateAppointmentIllegalTransition(t *testing.T) {
	svc, _, appointments, _ := newTestService()
	ctx := context.Background()

	a := newAppointment(nil, uuid.New(), 0, 30)
	a.ID = uuid.New()
	a.Status = StatusFulfilled
	appointments.appointments[a.ID] = a

	_, err := svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{Status: strPtr("cancelled")}, "")
	var itErr *IllegalTransitionError
	if !errors.As(err, &itErr) {
		t.Fatalf("expected IllegalTransitionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "none (terminal state)") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestUpdateAppointmentSelfTransitionIsNoOp(t *testing.T) {
	svc, _, _, history := newTestService()
	ctx := context.Background()

	a := newAppointment(nil, uuid.New(), 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{Status: strPtr("requested")}, "noop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusRequested {
		t.Errorf("expected requested, got %s", updated.Status)
	}
	if len(history.entries) != 0 {
		t.Errorf("expected no history for a no-op, got %d entries", len(history.entries))
	}
}

func TestUpdateAppointmentSelfExclusion(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	a := newAppointment(nil, uuid.New(), 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Shift within its own current window; must not collide with itself.
	_, err := svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{
		StartTime: timePtr(at(15)),
		EndTime:   timePtr(at(45)),
	}, "")
	if err != nil {
		t.Fatalf("expected self-exclusion to allow the move, got %v", err)
	}
}

func TestUpdateAppointmentEffectiveValues(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	a := newAppointment(nil, uuid.New(), 0, 60)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only start in the request; end is taken from the stored row.
	updated, err := svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{StartTime: timePtr(at(30))}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.StartTime.Equal(at(30)) || !updated.EndTime.Equal(at(60)) {
		t.Errorf("expected [30,60), got [%v,%v)", updated.StartTime, updated.EndTime)
	}

	// A start beyond the stored end must fail against the merged window.
	_, err = svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{StartTime: timePtr(at(90))}, "")
	var ruleErr *BusinessRuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected BusinessRuleError, got %v", err)
	}
}

func TestUpdateAppointmentHistoryOptIn(t *testing.T) {
	svc, _, _, history := newTestService()
	ctx := context.Background()

	a := newAppointment(nil, uuid.New(), 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Change without reason: no history.
	if _, err := svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{Status: strPtr("confirmed")}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history.entries) != 0 {
		t.Fatalf("expected no history without reason, got %d", len(history.entries))
	}

	// Reason without change: no history.
	if _, err := svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{Notes: strPtr("bring referral")}, "untracked field"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history.entries) != 0 {
		t.Fatalf("expected no history for untracked change, got %d", len(history.entries))
	}

	// Reason plus tracked change: exactly one row with only that change.
	if _, err := svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{
		StartTime: timePtr(at(10)),
		EndTime:   timePtr(at(40)),
	}, "patient running late"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history.entries))
	}
	entry := history.entries[0]
	if entry.PrevStatus != nil || entry.NewStatus != nil {
		t.Error("expected status fields nil for a time-only change")
	}
	if entry.PrevStartTime == nil || !entry.PrevStartTime.Equal(at(0)) {
		t.Errorf("expected prev start 09:00, got %v", entry.PrevStartTime)
	}
	if entry.NewStartTime == nil || !entry.NewStartTime.Equal(at(10)) {
		t.Errorf("expected new start 09:10, got %v", entry.NewStartTime)
	}
}

func TestUpdateAppointmentCapacityOnConfirm(t *testing.T) {
	svc, schedules, appointments, _ := newTestService()
	ctx := context.Background()

	sched := seedSchedule(schedules, intPtr(1), ScheduleOpen, timePtr(at(0)), timePtr(at(120)))

	other := newAppointment(&sched.ID, uuid.New(), 0, 30)
	other.ID = uuid.New()
	other.Status = StatusConfirmed
	appointments.appointments[other.ID] = other

	mine := newAppointment(&sched.ID, uuid.New(), 60, 90)
	if err := svc.CreateAppointment(ctx, mine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.UpdateAppointment(ctx, mine.ID, AppointmentUpdate{Status: strPtr("confirmed")}, "")
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError at capacity, got %v", err)
	}
}

func TestUpdateAppointmentScheduleChangeWhileConfirmed(t *testing.T) {
	svc, schedules, appointments, _ := newTestService()
	ctx := context.Background()

	src := seedSchedule(schedules, intPtr(2), ScheduleOpen, timePtr(at(0)), timePtr(at(120)))
	dst := seedSchedule(schedules, intPtr(1), ScheduleOpen, timePtr(at(0)), timePtr(at(120)))

	taken := newAppointment(&dst.ID, uuid.New(), 0, 30)
	taken.ID = uuid.New()
	taken.Status = StatusConfirmed
	appointments.appointments[taken.ID] = taken

	mine := newAppointment(&src.ID, uuid.New(), 60, 90)
	mine.ID = uuid.New()
	mine.Status = StatusConfirmed
	appointments.appointments[mine.ID] = mine

	// Moving a confirmed appointment into a full schedule re-runs the
	// capacity guard against the target.
	_, err := svc.UpdateAppointment(ctx, mine.ID, AppointmentUpdate{ScheduleID: &dst.ID}, "")
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestUpdateAppointmentNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.UpdateAppointment(context.Background(), uuid.New(), AppointmentUpdate{}, "")
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCancelAppointment(t *testing.T) {
	svc, _, _, history := newTestService()
	ctx := context.Background()

	a := newAppointment(nil, uuid.New(), 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := svc.CancelAppointment(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if len(history.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history.entries))
	}
	if history.entries[0].Reason != "automatic cancellation on delete" {
		t.Errorf("unexpected reason %q", history.entries[0].Reason)
	}
}

func TestCancelAppointmentIdempotent(t *testing.T) {
	svc, _, _, history := newTestService()
	ctx := context.Background()

	a := newAppointment(nil, uuid.New(), 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := svc.CancelAppointment(ctx, a.ID)
		if err != nil {
			t.Fatalf("cancel %d: unexpected error: %v", i, err)
		}
		if got.Status != StatusCancelled {
			t.Errorf("cancel %d: expected cancelled, got %s", i, got.Status)
		}
	}
	if len(history.entries) != 1 {
		t.Errorf("expected exactly 1 history entry after repeated cancels, got %d", len(history.entries))
	}
}

func TestCancelAppointmentTerminalNoOp(t *testing.T) {
	svc, _, appointments, history := newTestService()
	ctx := context.Background()

	for _, status := range []Status{StatusFulfilled, StatusNoShow} {
		a := newAppointment(nil, uuid.New(), 0, 30)
		a.ID = uuid.New()
		a.Status = status
		appointments.appointments[a.ID] = a

		got, err := svc.CancelAppointment(ctx, a.ID)
		if err != nil {
			t.Fatalf("status %s: unexpected error: %v", status, err)
		}
		if got.Status != status {
			t.Errorf("status %s: expected unchanged, got %s", status, got.Status)
		}
	}
	if len(history.entries) != 0 {
		t.Errorf("expected no history for terminal cancels, got %d", len(history.entries))
	}
}

// Full walkthrough: one-seat schedule, professional double-booking, then
// capacity exhaustion on a non-overlapping window.
func TestSingleSeatScheduleScenario(t *testing.T) {
	svc, schedules, _, _ := newTestService()
	ctx := context.Background()

	sched := seedSchedule(schedules, intPtr(1), ScheduleOpen, timePtr(at(0)), timePtr(at(60)))
	professional := sched.ProfessionalID

	a := newAppointment(&sched.ID, professional, 0, 30)
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("create A: unexpected error: %v", err)
	}
	if a.Status != StatusRequested {
		t.Fatalf("create A: expected requested, got %s", a.Status)
	}

	b := newAppointment(nil, professional, 15, 45)
	err := svc.CreateAppointment(ctx, b)
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("create B: expected professional-overlap ConflictError, got %v", err)
	}

	if _, err := svc.UpdateAppointment(ctx, a.ID, AppointmentUpdate{Status: strPtr("confirmed")}, ""); err != nil {
		t.Fatalf("confirm A: unexpected error: %v", err)
	}

	c := newAppointment(&sched.ID, uuid.New(), 30, 60)
	c.Status = StatusConfirmed
	err = svc.CreateAppointment(ctx, c)
	if !errors.As(err, &conflictErr) {
		t.Fatalf("create C: expected capacity ConflictError, got %v", err)
	}
}

func TestCreateScheduleDefaults(t *testing.T) {
	svc, _, _, _ := newTestService()

	sched := &Schedule{
		ProfessionalID: uuid.New(),
		CareUnitID:     uuid.New(),
		StartTime:      timePtr(at(0)),
		EndTime:        timePtr(at(60)),
	}
	if err := svc.CreateSchedule(context.Background(), sched); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.Status != ScheduleOpen {
		t.Errorf("expected default status open, got %s", sched.Status)
	}
	if sched.Capacity == nil || *sched.Capacity != 1 {
		t.Errorf("expected default capacity 1, got %v", sched.Capacity)
	}
}

func TestCreateScheduleValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		sched *Schedule
	}{
		{"missing professional", &Schedule{CareUnitID: uuid.New()}},
		{"inverted window", &Schedule{
			ProfessionalID: uuid.New(),
			CareUnitID:     uuid.New(),
			StartTime:      timePtr(at(60)),
			EndTime:        timePtr(at(0)),
		}},
		{"zero capacity", &Schedule{
			ProfessionalID: uuid.New(),
			CareUnitID:     uuid.New(),
			Capacity:       intPtr(0),
		}},
		{"bad status", &Schedule{
			ProfessionalID: uuid.New(),
			CareUnitID:     uuid.New(),
			Status:         "busy",
		}},
	}
	for _, tc := range cases {
		err := svc.CreateSchedule(ctx, tc.sched)
		var ruleErr *BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Errorf("%s: expected BusinessRuleError, got %v", tc.name, err)
		}
	}
}

func TestListAppointmentHistoryRequiresAppointment(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, _, err := svc.ListAppointmentHistory(context.Background(), uuid.New(), 50, 0)
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
