package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/facilityops/facility-system/internal/core/domain"
	"github.com/facilityops/facility-system/internal/core/ports"
)

type stubPermitRepo struct {
	mu      sync.Mutex
	nextID  int
	permits map[string]*domain.Permit
	history []*domain.PermitHistoryEntry
}

func newStubPermitRepo() *stubPermitRepo {
	return &stubPermitRepo{permits: make(map[string]*domain.Permit)}
}

func clonePermit(p *domain.Permit) *domain.Permit {
	clone := *p
	return &clone
}

func (r *stubPermitRepo) Create(_ context.Context, p *domain.Permit) (*domain.Permit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	copy := clonePermit(p)
	copy.ID = "permit-" + strconv.Itoa(r.nextID)
	r.permits[copy.ID] = clonePermit(copy)
	return copy, nil
}

func (r *stubPermitRepo) FindByID(_ context.Context, id string) (*domain.Permit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.permits[id]; ok {
		return clonePermit(p), nil
	}
	return nil, domain.ErrPermitNotFound
}

func (r *stubPermitRepo) FindByNumber(_ context.Context, number string) (*domain.Permit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.permits {
		if p.Number == number && p.IsActive {
			return clonePermit(p), nil
		}
	}
	return nil, domain.ErrPermitNotFound
}

func (r *stubPermitRepo) List(_ context.Context, facilityID string) ([]*domain.Permit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Permit
	for _, p := range r.permits {
		if facilityID == "" || p.FacilityID == facilityID {
			out = append(out, clonePermit(p))
		}
	}
	return out, nil
}

func (r *stubPermitRepo) Update(_ context.Context, p *domain.Permit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.permits[p.ID]; !ok {
		return domain.ErrPermitNotFound
	}
	r.permits[p.ID] = clonePermit(p)
	return nil
}

func (r *stubPermitRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.permits[id]; !ok {
		return domain.ErrPermitNotFound
	}
	delete(r.permits, id)
	kept := r.history[:0]
	for _, e := range r.history {
		if e.PermitID != id {
			kept = append(kept, e)
		}
	}
	r.history = kept
	return nil
}

func (r *stubPermitRepo) AppendHistory(_ context.Context, entry *domain.PermitHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, entry)
	return nil
}

func (r *stubPermitRepo) History(_ context.Context, permitID string) ([]*domain.PermitHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PermitHistoryEntry
	for _, e := range r.history {
		if e.PermitID == permitID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubPermitRepo) actionsFor(permitID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.history {
		if e.PermitID == permitID {
			out = append(out, e.Action)
		}
	}
	return out
}

type stubFacilityRepo struct {
	facilities map[string]*domain.Facility
}

func newStubFacilityRepo(facilities ...*domain.Facility) *stubFacilityRepo {
	r := &stubFacilityRepo{facilities: make(map[string]*domain.Facility)}
	for _, f := range facilities {
		r.facilities[f.ID] = f
	}
	return r
}

func (r *stubFacilityRepo) Create(_ context.Context, f *domain.Facility) (*domain.Facility, error) {
	r.facilities[f.ID] = f
	return f, nil
}

func (r *stubFacilityRepo) FindByID(_ context.Context, id string) (*domain.Facility, error) {
	if f, ok := r.facilities[id]; ok {
		return f, nil
	}
	return nil, domain.ErrFacilityNotFound
}

func (r *stubFacilityRepo) List(_ context.Context, _ bool) ([]*domain.Facility, error) {
	var out []*domain.Facility
	for _, f := range r.facilities {
		out = append(out, f)
	}
	return out, nil
}

func (r *stubFacilityRepo) Update(_ context.Context, f *domain.Facility) error {
	r.facilities[f.ID] = f
	return nil
}

func (r *stubFacilityRepo) Delete(_ context.Context, id string) error {
	delete(r.facilities, id)
	return nil
}

type stubStorage struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func newStubStorage() *stubStorage {
	return &stubStorage{puts: make(map[string][]byte)}
}

func (s *stubStorage) Put(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts[key] = data
	return nil
}

func (s *stubStorage) URL(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key, nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.puts, key)
	return nil
}

func datePlusDays(now time.Time, days int) string {
	return now.AddDate(0, 0, days).Format("2006-01-02")
}

func newTestPermitService(repo *stubPermitRepo, facilities *stubFacilityRepo, store *stubStorage) *PermitService {
	return NewPermitService(repo, facilities, store, zerolog.Nop())
}

func testFacility() *domain.Facility {
	return &domain.Facility{
		ID:       "fac-1",
		Name:     "North Station",
		Type:     domain.FacilityGasStation,
		IsActive: true,
	}
}

func TestPermitService_Upload(t *testing.T) {
	repo := newStubPermitRepo()
	store := newStubStorage()
	svc := newTestPermitService(repo, newStubFacilityRepo(testFacility()), store)

	now := time.Now().UTC()
	permit, err := svc.Upload(context.Background(), ports.UploadPermitInput{
		Name:       "Operating Permit",
		Number:     "OP-100",
		ExpiryDate: datePlusDays(now, 180),
		FacilityID: "fac-1",
		UserID:     "user-1",
		Document:   bytes.NewReader([]byte("pdf-bytes")),
		Filename:   "permit.pdf",
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if !permit.IsActive {
		t.Fatalf("new permit must be active")
	}
	if permit.DocumentKey == "" {
		t.Fatalf("expected document key")
	}
	if !strings.HasPrefix(permit.DocumentKey, "permits/fac-1-north-station/") {
		t.Fatalf("unexpected document key %q", permit.DocumentKey)
	}
	if _, ok := store.puts[permit.DocumentKey]; !ok {
		t.Fatalf("document not stored")
	}

	actions := repo.actionsFor(permit.ID)
	if len(actions) != 1 || actions[0] != "Document uploaded" {
		t.Fatalf("unexpected history: %v", actions)
	}
}

func TestPermitService_Upload_Validation(t *testing.T) {
	svc := newTestPermitService(newStubPermitRepo(), newStubFacilityRepo(testFacility()), newStubStorage())

	_, err := svc.Upload(context.Background(), ports.UploadPermitInput{
		IssueDate:  "not-a-date",
		ExpiryDate: "",
	})

	var fe ports.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	for _, field := range []string{"name", "number", "facility", "expiry_date", "issue_date"} {
		if _, ok := fe[field]; !ok {
			t.Fatalf("missing field error for %q in %v", field, fe)
		}
	}
}

func TestPermitService_Upload_UnknownFacility(t *testing.T) {
	svc := newTestPermitService(newStubPermitRepo(), newStubFacilityRepo(), newStubStorage())

	_, err := svc.Upload(context.Background(), ports.UploadPermitInput{
		Name:       "Operating Permit",
		Number:     "OP-100",
		ExpiryDate: "2030-01-01",
		FacilityID: "ghost",
	})
	if !errors.Is(err, domain.ErrFacilityNotFound) {
		t.Fatalf("expected ErrFacilityNotFound, got %v", err)
	}
}

func TestPermitService_Upload_DuplicateNumber(t *testing.T) {
	repo := newStubPermitRepo()
	svc := newTestPermitService(repo, newStubFacilityRepo(testFacility()), newStubStorage())

	now := time.Now().UTC()
	original, err := svc.Upload(context.Background(), ports.UploadPermitInput{
		Name: "First", Number: "OP-100", ExpiryDate: datePlusDays(now, 90), FacilityID: "fac-1",
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	_, err = svc.Upload(context.Background(), ports.UploadPermitInput{
		Name: "Second", Number: "OP-100", ExpiryDate: datePlusDays(now, 90), FacilityID: "fac-1",
	})
	if !errors.Is(err, domain.ErrDuplicatePermit) {
		t.Fatalf("expected ErrDuplicatePermit, got %v", err)
	}

	// A superseded permit keeps its number without blocking reuse.
	if _, err := svc.Renew(context.Background(), ports.RenewPermitInput{
		PermitID: original.ID, Number: "OP-200", ExpiryDate: datePlusDays(now, 365),
	}); err != nil {
		t.Fatalf("renew failed: %v", err)
	}
	if _, err := svc.Upload(context.Background(), ports.UploadPermitInput{
		Name: "Fresh", Number: "OP-100", ExpiryDate: datePlusDays(now, 90), FacilityID: "fac-1",
	}); err != nil {
		t.Fatalf("number of superseded permit should be reusable: %v", err)
	}
}

func TestPermitService_Renew(t *testing.T) {
	repo := newStubPermitRepo()
	svc := newTestPermitService(repo, newStubFacilityRepo(testFacility()), newStubStorage())

	now := time.Now().UTC()
	original, err := svc.Upload(context.Background(), ports.UploadPermitInput{
		Name:       "Operating Permit",
		Number:     "OP-100",
		IssuedBy:   "State Fire Marshal",
		ExpiryDate: datePlusDays(now, 10),
		FacilityID: "fac-1",
		UserID:     "user-1",
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	renewed, err := svc.Renew(context.Background(), ports.RenewPermitInput{
		PermitID:   original.ID,
		Number:     "OP-101",
		ExpiryDate: datePlusDays(now, 375),
		UserID:     "user-2",
	})
	if err != nil {
		t.Fatalf("renew failed: %v", err)
	}

	if renewed.ParentID != original.ID {
		t.Fatalf("expected parent %s, got %s", original.ID, renewed.ParentID)
	}
	// Empty metadata falls back to the original's values.
	if renewed.IssuedBy != "State Fire Marshal" {
		t.Fatalf("issued_by fallback missing, got %q", renewed.IssuedBy)
	}
	if renewed.StatusAt(now) != domain.PermitActive {
		t.Fatalf("renewed permit should be active, got %s", renewed.StatusAt(now))
	}

	stored, _ := repo.FindByID(context.Background(), original.ID)
	if stored.IsActive {
		t.Fatalf("original permit should be deactivated")
	}
	if stored.StatusAt(now) != domain.PermitSuperseded {
		t.Fatalf("original should derive superseded, got %s", stored.StatusAt(now))
	}

	if got := repo.actionsFor(renewed.ID); len(got) != 1 || got[0] != "Permit renewed" {
		t.Fatalf("unexpected renewed history: %v", got)
	}
	superseded := repo.actionsFor(original.ID)
	if len(superseded) != 2 || superseded[1] != "Permit superseded" {
		t.Fatalf("unexpected original history: %v", superseded)
	}
}

func TestPermitService_Delete_RemovesRecordAndDocument(t *testing.T) {
	repo := newStubPermitRepo()
	store := newStubStorage()
	svc := newTestPermitService(repo, newStubFacilityRepo(testFacility()), store)

	now := time.Now().UTC()
	permit, err := svc.Upload(context.Background(), ports.UploadPermitInput{
		Name:       "Operating Permit",
		Number:     "OP-100",
		ExpiryDate: datePlusDays(now, 90),
		FacilityID: "fac-1",
		Document:   bytes.NewReader([]byte("pdf-bytes")),
		Filename:   "permit.pdf",
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if err := svc.Delete(context.Background(), permit.ID, "user-9"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := repo.FindByID(context.Background(), permit.ID); !errors.Is(err, domain.ErrPermitNotFound) {
		t.Fatalf("deleted permit must be gone, got %v", err)
	}
	if _, ok := store.puts[permit.DocumentKey]; ok {
		t.Fatalf("stored document should be removed")
	}
	if got := repo.actionsFor(permit.ID); len(got) != 0 {
		t.Fatalf("history should be removed with the permit, got %v", got)
	}
}

func TestPermitService_Renew_BadExpiryFallsBack(t *testing.T) {
	repo := newStubPermitRepo()
	svc := newTestPermitService(repo, newStubFacilityRepo(testFacility()), newStubStorage())

	now := time.Now().UTC()
	original, err := svc.Upload(context.Background(), ports.UploadPermitInput{
		Name: "Operating Permit", Number: "OP-100",
		ExpiryDate: datePlusDays(now, 200), FacilityID: "fac-1",
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	renewed, err := svc.Renew(context.Background(), ports.RenewPermitInput{
		PermitID:   original.ID,
		ExpiryDate: "banana",
	})
	if err != nil {
		t.Fatalf("renew failed: %v", err)
	}
	if renewed.ExpiryDate != original.ExpiryDate {
		t.Fatalf("unparseable renewal date must fall back to %q, got %q",
			original.ExpiryDate, renewed.ExpiryDate)
	}
	if renewed.StatusAt(now) != domain.PermitActive {
		t.Fatalf("renewed permit should stay active, got %s", renewed.StatusAt(now))
	}
}

func TestPermitService_ListFiltersDerivedStatus(t *testing.T) {
	repo := newStubPermitRepo()
	svc := newTestPermitService(repo, newStubFacilityRepo(testFacility()), newStubStorage())

	now := time.Now().UTC()
	mk := func(number, expiry string) {
		t.Helper()
		if _, err := svc.Upload(context.Background(), ports.UploadPermitInput{
			Name: "P " + number, Number: number, ExpiryDate: expiry, FacilityID: "fac-1",
		}); err != nil {
			t.Fatalf("upload %s: %v", number, err)
		}
	}
	mk("ACT-1", datePlusDays(now, 120))
	mk("EXP-1", datePlusDays(now, 5))
	mk("DEAD-1", datePlusDays(now, -3))

	expiring, err := svc.List(context.Background(), ports.ListPermitsFilter{Status: "expiring"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(expiring) != 1 || expiring[0].Number != "EXP-1" {
		t.Fatalf("unexpected expiring set: %+v", expiring)
	}

	all, err := svc.List(context.Background(), ports.ListPermitsFilter{Status: "all"})
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 permits, got %d", len(all))
	}
}

func TestPermitService_Stats_ExcludesSuperseded(t *testing.T) {
	repo := newStubPermitRepo()
	svc := newTestPermitService(repo, newStubFacilityRepo(testFacility()), newStubStorage())

	now := time.Now().UTC()
	original, err := svc.Upload(context.Background(), ports.UploadPermitInput{
		Name: "Old", Number: "OP-1", ExpiryDate: datePlusDays(now, 10), FacilityID: "fac-1",
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if _, err := svc.Renew(context.Background(), ports.RenewPermitInput{
		PermitID: original.ID, Number: "OP-2", ExpiryDate: datePlusDays(now, 200),
	}); err != nil {
		t.Fatalf("renew failed: %v", err)
	}

	stats, err := svc.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 1 || stats.Active != 1 {
		t.Fatalf("superseded permit leaked into stats: %+v", stats)
	}
	if stats.Expiring != 0 || stats.Expired != 0 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}
