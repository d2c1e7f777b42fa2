package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/facilityops/facility-system/internal/api/metrics"
	"github.com/facilityops/facility-system/internal/core/domain"
	"github.com/facilityops/facility-system/internal/core/ports"
)

// PermitService implements the permit lifecycle: upload, renewal
// (supersession), deletion, history, and dashboard stats.
type PermitService struct {
	repo       ports.PermitRepository
	facilities ports.FacilityRepository
	storage    ports.DocumentStorage
	logger     zerolog.Logger
}

func NewPermitService(
	repo ports.PermitRepository,
	facilities ports.FacilityRepository,
	storage ports.DocumentStorage,
	logger zerolog.Logger,
) *PermitService {
	return &PermitService{repo: repo, facilities: facilities, storage: storage, logger: logger}
}

// Upload creates a new permit from an uploaded document plus metadata and
// records the creation in the permit's history.
func (s *PermitService) Upload(ctx context.Context, in ports.UploadPermitInput) (*domain.Permit, error) {
	if err := validateUpload(in); err != nil {
		return nil, err
	}

	if err := s.checkNumberFree(ctx, in.Number); err != nil {
		return nil, err
	}

	facility, err := s.facilities.FindByID(ctx, in.FacilityID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	permit := &domain.Permit{
		Name:         in.Name,
		Number:       in.Number,
		IssueDate:    in.IssueDate,
		ExpiryDate:   in.ExpiryDate,
		IssuedBy:     in.IssuedBy,
		RenewalURL:   in.RenewalURL,
		IsActive:     true,
		FacilityID:   facility.ID,
		UploadedByID: in.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if in.Document != nil {
		key := documentKey(facility, in.Filename)
		if err := s.storage.Put(ctx, key, in.Document); err != nil {
			return nil, fmt.Errorf("store permit document: %w", err)
		}
		permit.DocumentKey = key
	}

	created, err := s.repo.Create(ctx, permit)
	if err != nil {
		return nil, err
	}

	s.appendHistory(ctx, created.ID, "Document uploaded", in.UserID,
		fmt.Sprintf("Uploaded %s", in.Filename), created.DocumentKey)

	metrics.PermitsUploadedTotal.WithLabelValues(string(facility.Type)).Inc()
	s.logger.Info().Str("permit_id", created.ID).Str("number", created.Number).
		Str("facility_id", facility.ID).Msg("permit created")

	return created, nil
}

func (s *PermitService) Get(ctx context.Context, id string) (*domain.Permit, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns permits for the filter. Status filtering uses the derived
// status, so it happens here rather than in the repository.
func (s *PermitService) List(ctx context.Context, filter ports.ListPermitsFilter) ([]*domain.Permit, error) {
	permits, err := s.repo.List(ctx, filter.FacilityID)
	if err != nil {
		return nil, err
	}

	return domain.FilterPermits(permits, filter.Status, time.Now().UTC()), nil
}

// Renew uploads a renewal document: the original permit is deactivated
// (superseded) and a new permit is created carrying ParentID to continue the
// supersession chain. Missing metadata falls back to the original's values.
func (s *PermitService) Renew(ctx context.Context, in ports.RenewPermitInput) (*domain.Permit, error) {
	original, err := s.repo.FindByID(ctx, in.PermitID)
	if err != nil {
		return nil, err
	}

	facility, err := s.facilities.FindByID(ctx, original.FacilityID)
	if err != nil {
		return nil, err
	}

	number := in.Number
	if number == "" {
		number = original.Number
	} else if number != original.Number {
		if err := s.checkNumberFree(ctx, number); err != nil {
			return nil, err
		}
	}
	// A missing or unparseable renewal date falls back to the original's
	// expiry; a renewal never supersedes a permit with an unreadable date.
	expiry := in.ExpiryDate
	if _, ok := domain.DateOnly(expiry); !ok {
		expiry = original.ExpiryDate
	}
	issuedBy := in.IssuedBy
	if issuedBy == "" {
		issuedBy = original.IssuedBy
	}

	now := time.Now().UTC()
	original.IsActive = false
	original.StoredStatus = domain.PermitSuperseded
	original.UpdatedAt = now
	if err := s.repo.Update(ctx, original); err != nil {
		return nil, fmt.Errorf("supersede original permit: %w", err)
	}

	renewed := &domain.Permit{
		Name:         original.Name,
		Number:       number,
		IssueDate:    in.IssueDate,
		ExpiryDate:   expiry,
		IssuedBy:     issuedBy,
		IsActive:     true,
		ParentID:     original.ID,
		FacilityID:   original.FacilityID,
		UploadedByID: in.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if in.Document != nil {
		key := documentKey(facility, in.Filename)
		if err := s.storage.Put(ctx, key, in.Document); err != nil {
			return nil, fmt.Errorf("store renewal document: %w", err)
		}
		renewed.DocumentKey = key
	}

	created, err := s.repo.Create(ctx, renewed)
	if err != nil {
		return nil, err
	}

	s.appendHistory(ctx, created.ID, "Permit renewed", in.UserID,
		fmt.Sprintf("Renewed from permit #%s", original.Number), created.DocumentKey)
	s.appendHistory(ctx, original.ID, "Permit superseded", in.UserID,
		fmt.Sprintf("Superseded by permit #%s", created.Number), "")

	metrics.PermitsRenewedTotal.Inc()
	s.logger.Info().Str("original_id", original.ID).Str("renewed_id", created.ID).Msg("permit renewed")

	return created, nil
}

// Delete permanently removes a permit, its history, and its stored document.
// Supersession keeps records around; an explicit delete is the one path that
// destroys them.
func (s *PermitService) Delete(ctx context.Context, id, userID string) error {
	permit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if permit.DocumentKey != "" {
		if err := s.storage.Delete(ctx, permit.DocumentKey); err != nil {
			s.logger.Warn().Err(err).Str("key", permit.DocumentKey).Msg("failed to delete permit document")
		}
	}

	if err := s.repo.Delete(ctx, permit.ID); err != nil {
		return err
	}

	s.logger.Info().Str("permit_id", permit.ID).Str("user_id", userID).Msg("permit deleted")
	return nil
}

func (s *PermitService) History(ctx context.Context, permitID string) ([]*domain.PermitHistoryEntry, error) {
	if _, err := s.repo.FindByID(ctx, permitID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, permitID)
}

// Stats aggregates derived statuses for the dashboard. Superseded permits
// are excluded from every counter.
func (s *PermitService) Stats(ctx context.Context, facilityID string) (*domain.PermitStats, error) {
	permits, err := s.repo.List(ctx, facilityID)
	if err != nil {
		return nil, err
	}

	flat := make([]domain.Permit, len(permits))
	for i, p := range permits {
		flat[i] = *p
	}
	stats := domain.ComputeStats(flat, time.Now().UTC())
	return &stats, nil
}

// appendHistory records an audit entry; failures are logged, never fatal,
// so a history write cannot fail the user-visible operation.
func (s *PermitService) appendHistory(ctx context.Context, permitID, action, userID, notes, documentKey string) {
	var docURL string
	if documentKey != "" {
		url, err := s.storage.URL(ctx, documentKey)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", documentKey).Msg("failed to resolve document url")
		} else {
			docURL = url
		}
	}

	entry := &domain.PermitHistoryEntry{
		PermitID:    permitID,
		Action:      action,
		UserID:      userID,
		Notes:       notes,
		DocumentURL: docURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("permit_id", permitID).Str("action", action).Msg("failed to append permit history")
	}
}

// checkNumberFree rejects a permit number already carried by an active
// permit. Superseded permits keep their number and do not block reuse.
func (s *PermitService) checkNumberFree(ctx context.Context, number string) error {
	_, err := s.repo.FindByNumber(ctx, number)
	if err == nil {
		return domain.ErrDuplicatePermit
	}
	if errors.Is(err, domain.ErrPermitNotFound) {
		return nil
	}
	return err
}

func validateUpload(in ports.UploadPermitInput) error {
	fe := ports.FieldErrors{}
	if in.Name == "" {
		fe["name"] = "name is required"
	}
	if in.Number == "" {
		fe["number"] = "permit number is required"
	}
	if in.FacilityID == "" {
		fe["facility"] = "facility is required"
	}
	if in.ExpiryDate == "" {
		fe["expiry_date"] = "expiry date is required"
	} else if _, ok := domain.DateOnly(in.ExpiryDate); !ok {
		fe["expiry_date"] = "expiry date must be YYYY-MM-DD"
	}
	if in.IssueDate != "" {
		if _, ok := domain.DateOnly(in.IssueDate); !ok {
			fe["issue_date"] = "issue date must be YYYY-MM-DD"
		}
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// documentKey builds the storage path for a permit document:
// permits/<facility_id>-<facility-name>/<filename>
func documentKey(f *domain.Facility, filename string) string {
	folder := fmt.Sprintf("%s-%s", f.ID, strings.ReplaceAll(strings.ToLower(f.Name), " ", "-"))
	return path.Join("permits", folder, filename)
}
