package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Service provides CRUD over the registry records.
type Service struct {
	patients      PatientRepository
	professionals ProfessionalRepository
	careUnits     CareUnitRepository
}

// NewService creates a registry service.
func NewService(patients PatientRepository, professionals ProfessionalRepository, careUnits CareUnitRepository) *Service {
	return &Service{patients: patients, professionals: professionals, careUnits: careUnits}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FullName) == "" {
		return &ValidationError{Msg: "full_name is required"}
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FullName) == "" {
		return &ValidationError{Msg: "full_name is required"}
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) CreateProfessional(ctx context.Context, p *Professional) error {
	if strings.TrimSpace(p.FullName) == "" {
		return &ValidationError{Msg: "full_name is required"}
	}
	return s.professionals.Create(ctx, p)
}

func (s *Service) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return s.professionals.GetByID(ctx, id)
}

func (s *Service) UpdateProfessional(ctx context.Context, p *Professional) error {
	if strings.TrimSpace(p.FullName) == "" {
		return &ValidationError{Msg: "full_name is required"}
	}
	return s.professionals.Update(ctx, p)
}

func (s *Service) DeleteProfessional(ctx context.Context, id uuid.UUID) error {
	return s.professionals.Delete(ctx, id)
}

func (s *Service) ListProfessionals(ctx context.Context, limit, offset int) ([]*Professional, int, error) {
	return s.professionals.List(ctx, limit, offset)
}

func (s *Service) CreateCareUnit(ctx context.Context, u *CareUnit) error {
	if strings.TrimSpace(u.Name) == "" {
		return &ValidationError{Msg: "name is required"}
	}
	return s.careUnits.Create(ctx, u)
}

func (s *Service) GetCareUnit(ctx context.Context, id uuid.UUID) (*CareUnit, error) {
	return s.careUnits.GetByID(ctx, id)
}

func (s *Service) UpdateCareUnit(ctx context.Context, u *CareUnit) error {
	if strings.TrimSpace(u.Name) == "" {
		return &ValidationError{Msg: "name is required"}
	}
	return s.careUnits.Update(ctx, u)
}

func (s *Service) DeleteCareUnit(ctx context.Context, id uuid.UUID) error {
	return s.careUnits.Delete(ctx, id)
}

func (s *Service) ListCareUnits(ctx context.Context, limit, offset int) ([]*CareUnit, int, error) {
	return s.careUnits.List(ctx, limit, offset)
}
