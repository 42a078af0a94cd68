package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliniq/cliniq/internal/platform/db"
)

// pgPatientRepo is the Postgres implementation of PatientRepository.
type pgPatientRepo struct {
	pool *pgxpool.Pool
}

// NewPgPatientRepo creates a Postgres-backed patient repository.
func NewPgPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &pgPatientRepo{pool: pool}
}

func (r *pgPatientRepo) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *pgPatientRepo) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, full_name, birth_date, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		p.ID, p.FullName, p.BirthDate, p.Phone, p.Email)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *pgPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, full_name, birth_date, phone, email, created_at, updated_at
		FROM patient WHERE id = $1`, id).
		Scan(&p.ID, &p.FullName, &p.BirthDate, &p.Phone, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "patient", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &p, nil
}

func (r *pgPatientRepo) Update(ctx context.Context, p *Patient) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient
		SET full_name = $2, birth_date = $3, phone = $4, email = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.BirthDate, p.Phone, p.Email)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Resource: "patient", ID: p.ID}
		}
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

func (r *pgPatientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "patient", ID: id}
	}
	return nil
}

func (r *pgPatientRepo) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, full_name, birth_date, phone, email, created_at, updated_at
		FROM patient ORDER BY full_name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.FullName, &p.BirthDate, &p.Phone, &p.Email, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		patients = append(patients, &p)
	}
	return patients, total, rows.Err()
}

// pgProfessionalRepo is the Postgres implementation of ProfessionalRepository.
type pgProfessionalRepo struct {
	pool *pgxpool.Pool
}

// NewPgProfessionalRepo creates a Postgres-backed professional repository.
func NewPgProfessionalRepo(pool *pgxpool.Pool) ProfessionalRepository {
	return &pgProfessionalRepo{pool: pool}
}

func (r *pgProfessionalRepo) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *pgProfessionalRepo) Create(ctx context.Context, p *Professional) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO professional (id, full_name, specialty, license_number)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		p.ID, p.FullName, p.Specialty, p.LicenseNumber)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert professional: %w", err)
	}
	return nil
}

func (r *pgProfessionalRepo) GetByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	var p Professional
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, full_name, specialty, license_number, created_at, updated_at
		FROM professional WHERE id = $1`, id).
		Scan(&p.ID, &p.FullName, &p.Specialty, &p.LicenseNumber, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "professional", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get professional: %w", err)
	}
	return &p, nil
}

func (r *pgProfessionalRepo) Update(ctx context.Context, p *Professional) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE professional
		SET full_name = $2, specialty = $3, license_number = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.Specialty, p.LicenseNumber)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Resource: "professional", ID: p.ID}
		}
		return fmt.Errorf("update professional: %w", err)
	}
	return nil
}

func (r *pgProfessionalRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM professional WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete professional: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "professional", ID: id}
	}
	return nil
}

func (r *pgProfessionalRepo) List(ctx context.Context, limit, offset int) ([]*Professional, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM professional`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count professionals: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, full_name, specialty, license_number, created_at, updated_at
		FROM professional ORDER BY full_name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list professionals: %w", err)
	}
	defer rows.Close()

	var professionals []*Professional
	for rows.Next() {
		var p Professional
		if err := rows.Scan(&p.ID, &p.FullName, &p.Specialty, &p.LicenseNumber, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		professionals = append(professionals, &p)
	}
	return professionals, total, rows.Err()
}

// pgCareUnitRepo is the Postgres implementation of CareUnitRepository.
type pgCareUnitRepo struct {
	pool *pgxpool.Pool
}

// NewPgCareUnitRepo creates a Postgres-backed care unit repository.
func NewPgCareUnitRepo(pool *pgxpool.Pool) CareUnitRepository {
	return &pgCareUnitRepo{pool: pool}
}

func (r *pgCareUnitRepo) conn(ctx context.Context) db.Querier {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *pgCareUnitRepo) Create(ctx context.Context, u *CareUnit) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO care_unit (id, name, address)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Address)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("insert care unit: %w", err)
	}
	return nil
}

func (r *pgCareUnitRepo) GetByID(ctx context.Context, id uuid.UUID) (*CareUnit, error) {
	var u CareUnit
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, address, created_at, updated_at
		FROM care_unit WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Address, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "care unit", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get care unit: %w", err)
	}
	return &u, nil
}

func (r *pgCareUnitRepo) Update(ctx context.Context, u *CareUnit) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE care_unit
		SET name = $2, address = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Name, u.Address)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Resource: "care unit", ID: u.ID}
		}
		return fmt.Errorf("update care unit: %w", err)
	}
	return nil
}

func (r *pgCareUnitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM care_unit WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete care unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "care unit", ID: id}
	}
	return nil
}

func (r *pgCareUnitRepo) List(ctx context.Context, limit, offset int) ([]*CareUnit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM care_unit`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count care units: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, address, created_at, updated_at
		FROM care_unit ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list care units: %w", err)
	}
	defer rows.Close()

	var units []*CareUnit
	for rows.Next() {
		var u CareUnit
		if err := rows.Scan(&u.ID, &u.Name, &u.Address, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		units = append(units, &u)
	}
	return units, total, rows.Err()
}
