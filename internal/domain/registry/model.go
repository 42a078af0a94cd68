// Package registry holds the master data the scheduling engine books
// against: patients, professionals and care units. Plain CRUD, no business
// rules beyond required fields.
package registry

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a person who can hold appointments.
type Patient struct {
	ID        uuid.UUID  `json:"id"`
	FullName  string     `json:"full_name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Email     *string    `json:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Professional is a care provider who owns schedules and appointments.
type Professional struct {
	ID            uuid.UUID `json:"id"`
	FullName      string    `json:"full_name"`
	Specialty     *string   `json:"specialty,omitempty"`
	LicenseNumber *string   `json:"license_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CareUnit is a physical or virtual location where care is delivered.
type CareUnit struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
