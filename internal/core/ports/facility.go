package ports

import (
	"context"

	"github.com/facilityops/facility-system/internal/core/domain"
)

// CreateFacilityInput carries the fields for a new facility location.
type CreateFacilityInput struct {
	Name          string
	StreetAddress string
	City          string
	State         string
	ZipCode       string
	Country       string
	Type          string
	Description   string
	CreatedByID   string
}

// UpdateFacilityInput carries a partial facility update; nil pointers leave
// the field unchanged.
type UpdateFacilityInput struct {
	Name          *string
	StreetAddress *string
	City          *string
	State         *string
	ZipCode       *string
	Type          *string
	Description   *string
	IsActive      *bool
}

// TankInput carries the fields of a tank upsert.
type TankInput struct {
	Label            string
	Product          string
	Status           string
	Size             string
	Material         string
	ReleaseDetection string
	PipingMaterial   string
	Installed        string
}

// FacilityRepository defines persistence operations for facilities.
type FacilityRepository interface {
	Create(ctx context.Context, f *domain.Facility) (*domain.Facility, error)
	FindByID(ctx context.Context, id string) (*domain.Facility, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Facility, error)
	Update(ctx context.Context, f *domain.Facility) error
	Delete(ctx context.Context, id string) error
}

// FacilityService owns facility locations and their tanks.
type FacilityService interface {
	Create(ctx context.Context, in CreateFacilityInput) (*domain.Facility, error)
	Get(ctx context.Context, id string) (*domain.Facility, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Facility, error)
	Update(ctx context.Context, id string, in UpdateFacilityInput) (*domain.Facility, error)
	Delete(ctx context.Context, id string) error

	AddTank(ctx context.Context, facilityID string, in TankInput) (*domain.Facility, error)
	UpdateTank(ctx context.Context, facilityID, label string, in TankInput) (*domain.Facility, error)
	RemoveTank(ctx context.Context, facilityID, label string) (*domain.Facility, error)
}
