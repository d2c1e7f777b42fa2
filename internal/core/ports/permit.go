package ports

import (
	"context"
	"io"

	"github.com/facilityops/facility-system/internal/core/domain"
)

// ListPermitsFilter carries query parameters for listing permits.
// Status filters on the derived status ("all" or empty returns everything).
type ListPermitsFilter struct {
	FacilityID string
	Status     string
}

// UploadPermitInput carries the multipart upload of a new permit document
// plus its metadata. Document may be nil for a metadata-only creation.
type UploadPermitInput struct {
	Name       string
	Number     string
	IssueDate  string // YYYY-MM-DD, optional
	ExpiryDate string // YYYY-MM-DD, required
	IssuedBy   string
	RenewalURL string
	FacilityID string
	UserID     string

	Document io.Reader
	Filename string
}

// RenewPermitInput carries the renewal document for an existing permit.
// Empty metadata fields fall back to the original permit's values.
type RenewPermitInput struct {
	PermitID   string
	Number     string
	IssueDate  string
	ExpiryDate string
	IssuedBy   string
	UserID     string

	Document io.Reader
	Filename string
}

// PermitRepository defines persistence operations for permits and their
// append-only history.
type PermitRepository interface {
	Create(ctx context.Context, p *domain.Permit) (*domain.Permit, error)
	FindByID(ctx context.Context, id string) (*domain.Permit, error)
	// FindByNumber returns the active permit carrying the number. Superseded
	// permits keep their number and are not matched.
	FindByNumber(ctx context.Context, number string) (*domain.Permit, error)
	// List returns permits matching the facility filter. Derived-status
	// filtering happens in the service layer since status is computed at
	// read time.
	List(ctx context.Context, facilityID string) ([]*domain.Permit, error)
	Update(ctx context.Context, p *domain.Permit) error
	// Delete permanently removes the permit and its history entries.
	Delete(ctx context.Context, id string) error

	AppendHistory(ctx context.Context, entry *domain.PermitHistoryEntry) error
	// History returns entries for a permit, newest first.
	History(ctx context.Context, permitID string) ([]*domain.PermitHistoryEntry, error)
}

// PermitService owns the permit lifecycle: upload, renewal (supersession),
// deletion, history, and dashboard stats.
type PermitService interface {
	Upload(ctx context.Context, in UploadPermitInput) (*domain.Permit, error)
	Get(ctx context.Context, id string) (*domain.Permit, error)
	List(ctx context.Context, filter ListPermitsFilter) ([]*domain.Permit, error)
	Renew(ctx context.Context, in RenewPermitInput) (*domain.Permit, error)
	Delete(ctx context.Context, id, userID string) error
	History(ctx context.Context, permitID string) ([]*domain.PermitHistoryEntry, error)
	Stats(ctx context.Context, facilityID string) (*domain.PermitStats, error)
}

// DocumentStorage stores permit documents. Keys are opaque storage paths.
type DocumentStorage interface {
	Put(ctx context.Context, key string, body io.Reader) error
	// URL returns a retrievable URL for a stored document, or empty when
	// the backend cannot serve one.
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
