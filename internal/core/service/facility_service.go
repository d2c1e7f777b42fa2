package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/facilityops/facility-system/internal/core/domain"
	"github.com/facilityops/facility-system/internal/core/ports"
)

// FacilityService implements facility location and tank management.
type FacilityService struct {
	repo   ports.FacilityRepository
	logger zerolog.Logger
}

func NewFacilityService(repo ports.FacilityRepository, logger zerolog.Logger) *FacilityService {
	return &FacilityService{repo: repo, logger: logger}
}

func (s *FacilityService) Create(ctx context.Context, in ports.CreateFacilityInput) (*domain.Facility, error) {
	fe := ports.FieldErrors{}
	if in.Name == "" {
		fe["name"] = "name is required"
	}
	ftype := domain.FacilityType(in.Type)
	if in.Type == "" {
		ftype = domain.FacilityGasStation
	} else if !domain.ValidFacilityType(ftype) {
		fe["facility_type"] = "unknown facility type"
	}
	if len(fe) > 0 {
		return nil, fe
	}

	country := in.Country
	if country == "" {
		country = "United States"
	}

	now := time.Now().UTC()
	facility := &domain.Facility{
		Name:          in.Name,
		StreetAddress: in.StreetAddress,
		City:          in.City,
		State:         in.State,
		ZipCode:       in.ZipCode,
		Country:       country,
		Type:          ftype,
		Description:   in.Description,
		IsActive:      true,
		Tanks:         []domain.Tank{},
		CreatedByID:   in.CreatedByID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.repo.Create(ctx, facility)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("facility_id", created.ID).Str("name", created.Name).Msg("facility created")
	return created, nil
}

func (s *FacilityService) Get(ctx context.Context, id string) (*domain.Facility, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *FacilityService) List(ctx context.Context, activeOnly bool) ([]*domain.Facility, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *FacilityService) Update(ctx context.Context, id string, in ports.UpdateFacilityInput) (*domain.Facility, error) {
	facility, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		facility.Name = *in.Name
	}
	if in.StreetAddress != nil {
		facility.StreetAddress = *in.StreetAddress
	}
	if in.City != nil {
		facility.City = *in.City
	}
	if in.State != nil {
		facility.State = *in.State
	}
	if in.ZipCode != nil {
		facility.ZipCode = *in.ZipCode
	}
	if in.Type != nil {
		ftype := domain.FacilityType(*in.Type)
		if !domain.ValidFacilityType(ftype) {
			return nil, ports.FieldErrors{"facility_type": "unknown facility type"}
		}
		facility.Type = ftype
	}
	if in.Description != nil {
		facility.Description = *in.Description
	}
	if in.IsActive != nil {
		facility.IsActive = *in.IsActive
	}
	facility.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, facility); err != nil {
		return nil, err
	}
	return facility, nil
}

func (s *FacilityService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AddTank registers a tank at the facility. Labels are unique per facility.
func (s *FacilityService) AddTank(ctx context.Context, facilityID string, in ports.TankInput) (*domain.Facility, error) {
	facility, err := s.repo.FindByID(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if in.Label == "" {
		return nil, ports.FieldErrors{"label": "label is required"}
	}
	if _, exists := facility.FindTank(in.Label); exists {
		return nil, domain.ErrDuplicateTank
	}

	facility.Tanks = append(facility.Tanks, tankFromInput(in))
	facility.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, facility); err != nil {
		return nil, err
	}

	s.logger.Info().Str("facility_id", facility.ID).Str("label", in.Label).Msg("tank added")
	return facility, nil
}

func (s *FacilityService) UpdateTank(ctx context.Context, facilityID, label string, in ports.TankInput) (*domain.Facility, error) {
	facility, err := s.repo.FindByID(ctx, facilityID)
	if err != nil {
		return nil, err
	}

	for i, t := range facility.Tanks {
		if t.Label != label {
			continue
		}
		updated := tankFromInput(in)
		if updated.Label == "" {
			updated.Label = label
		}
		if updated.Label != label {
			if _, exists := facility.FindTank(updated.Label); exists {
				return nil, domain.ErrDuplicateTank
			}
		}
		facility.Tanks[i] = updated
		facility.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, facility); err != nil {
			return nil, err
		}
		return facility, nil
	}
	return nil, domain.ErrTankNotFound
}

func (s *FacilityService) RemoveTank(ctx context.Context, facilityID, label string) (*domain.Facility, error) {
	facility, err := s.repo.FindByID(ctx, facilityID)
	if err != nil {
		return nil, err
	}

	for i, t := range facility.Tanks {
		if t.Label == label {
			facility.Tanks = append(facility.Tanks[:i], facility.Tanks[i+1:]...)
			facility.UpdatedAt = time.Now().UTC()
			if err := s.repo.Update(ctx, facility); err != nil {
				return nil, err
			}
			return facility, nil
		}
	}
	return nil, domain.ErrTankNotFound
}

func tankFromInput(in ports.TankInput) domain.Tank {
	status := domain.TankStatus(in.Status)
	if status == "" {
		status = domain.TankActive
	}
	return domain.Tank{
		Label:            in.Label,
		Product:          in.Product,
		Status:           status,
		Size:             in.Size,
		Material:         in.Material,
		ReleaseDetection: in.ReleaseDetection,
		PipingMaterial:   in.PipingMaterial,
		Installed:        in.Installed,
	}
}
