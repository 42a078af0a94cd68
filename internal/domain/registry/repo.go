package registry

import (
	"context"

	"github.com/google/uuid"
)

// PatientRepository handles patient persistence.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

// ProfessionalRepository handles professional persistence.
type ProfessionalRepository interface {
	Create(ctx context.Context, p *Professional) error
	GetByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	Update(ctx context.Context, p *Professional) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Professional, int, error)
}

// CareUnitRepository handles care unit persistence.
type CareUnitRepository interface {
	Create(ctx context.Context, u *CareUnit) error
	GetByID(ctx context.Context, id uuid.UUID) (*CareUnit, error)
	Update(ctx context.Context, u *CareUnit) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*CareUnit, int, error)
}
