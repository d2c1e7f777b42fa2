package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/facilityops/facility-system/internal/api/metrics"
	"github.com/facilityops/facility-system/internal/core/domain"
	"github.com/facilityops/facility-system/internal/core/ports"
)

// expiryService re-evaluates permits against the wall clock. The derived
// status is always computed at read time; this sweep only caches the result
// on the record and writes an audit entry the first time a permit crosses
// into the expiring window or past its expiry date.
type expiryService struct {
	repo ports.PermitRepository
	log  zerolog.Logger
}

// NewExpiryService returns an ExpiryService implementation.
func NewExpiryService(repo ports.PermitRepository, log zerolog.Logger) ports.ExpiryService {
	return &expiryService{repo: repo, log: log}
}

// Process re-evaluates a single permit. Superseded permits are skipped; a
// transition is recorded only once per status.
func (s *expiryService) Process(ctx context.Context, in ports.ExpiryCheckInput) error {
	permit, err := s.repo.FindByID(ctx, in.PermitID)
	if err != nil {
		return fmt.Errorf("expiry check: %w", err)
	}

	now := time.Now().UTC()
	derived := permit.StatusAt(now)
	if derived == domain.PermitSuperseded || derived == permit.StoredStatus {
		return nil
	}

	permit.StoredStatus = derived
	permit.UpdatedAt = now
	if err := s.repo.Update(ctx, permit); err != nil {
		return fmt.Errorf("expiry check: cache status: %w", err)
	}

	var action string
	switch derived {
	case domain.PermitExpiring:
		action = "Permit entered expiring window"
	case domain.PermitExpired:
		action = "Permit expired"
	default:
		// Newly created or renewed permits settle to "active" silently.
		return nil
	}

	entry := &domain.PermitHistoryEntry{
		PermitID:  permit.ID,
		Action:    action,
		Notes:     fmt.Sprintf("Expiry date %s", domain.FormatDate(permit.ExpiryDate)),
		CreatedAt: now,
	}
	if err := s.repo.AppendHistory(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("permit_id", permit.ID).Msg("failed to record expiry transition")
	}

	metrics.ExpiryTransitionsTotal.WithLabelValues(string(derived)).Inc()
	s.log.Info().
		Str("permit_id", permit.ID).
		Str("number", permit.Number).
		Str("status", string(derived)).
		Msg("permit status transition")

	return nil
}
