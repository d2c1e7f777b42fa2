package domain

import (
	"errors"
	"strings"
	"time"
)

// PermitStatus represents the lifecycle state of a permit as shown to users.
type PermitStatus string

const (
	PermitActive     PermitStatus = "active"
	PermitExpiring   PermitStatus = "expiring"
	PermitExpired    PermitStatus = "expired"
	PermitSuperseded PermitStatus = "superseded"
)

// ExpiringWindowDays is the inclusive number of days before expiry during
// which a permit is reported as "expiring".
const ExpiringWindowDays = 30

var ErrPermitNotFound = errors.New("permit not found")
var ErrDuplicatePermit = errors.New("permit number already exists")
var ErrExpiryDateRequired = errors.New("expiry date is required")

// Permit is the core compliance record. IssueDate and ExpiryDate hold
// calendar dates as YYYY-MM-DD strings; they carry no time or zone component,
// so all day arithmetic happens at UTC midnight.
type Permit struct {
	ID           string       `json:"id" bson:"_id,omitempty"`
	Name         string       `json:"name" bson:"name"`
	Number       string       `json:"number" bson:"number"`
	IssueDate    string       `json:"issue_date,omitempty" bson:"issue_date,omitempty"`
	ExpiryDate   string       `json:"expiry_date" bson:"expiry_date"`
	IssuedBy     string       `json:"issued_by" bson:"issued_by"`
	IsActive     bool         `json:"is_active" bson:"is_active"`
	ParentID     string       `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	RenewalURL   string       `json:"renewal_url,omitempty" bson:"renewal_url,omitempty"`
	DocumentKey  string       `json:"document_key,omitempty" bson:"document_key,omitempty"`
	FacilityID   string       `json:"facility_id" bson:"facility_id"`
	UploadedByID string       `json:"uploaded_by,omitempty" bson:"uploaded_by,omitempty"`
	StoredStatus PermitStatus `json:"-" bson:"status,omitempty"`
	CreatedAt    time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" bson:"updated_at"`
}

// PermitHistoryEntry is an immutable audit row attached to a permit.
// Entries are append-only; the service layer creates them, clients only read.
type PermitHistoryEntry struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	PermitID    string    `json:"permit_id" bson:"permit_id"`
	Action      string    `json:"action" bson:"action"`
	UserID      string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Notes       string    `json:"notes,omitempty" bson:"notes,omitempty"`
	DocumentURL string    `json:"document_url,omitempty" bson:"document_url,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// PermitStats holds dashboard counters. Superseded permits are hidden from
// top-level dashboards and therefore excluded from every counter, including
// Total.
type PermitStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Expiring int `json:"expiring"`
	Expired  int `json:"expired"`
}

// StatusAt derives the display status of the permit relative to now.
//
// The superseded check short-circuits: once a permit is deactivated or its
// stored status says superseded, the expiry date is irrelevant. Otherwise the
// status follows from whole days until expiry at UTC midnight: negative means
// expired, 0..ExpiringWindowDays means expiring (a permit expiring today is
// expiring, not expired), anything later is active.
func (p Permit) StatusAt(now time.Time) PermitStatus {
	if !p.IsActive || p.StoredStatus == PermitSuperseded {
		return PermitSuperseded
	}

	days, ok := p.DaysUntilExpiry(now)
	if !ok {
		// Unparseable expiry date: surface the permit as expired so it
		// demands attention instead of silently counting as active.
		return PermitExpired
	}

	switch {
	case days < 0:
		return PermitExpired
	case days <= ExpiringWindowDays:
		return PermitExpiring
	default:
		return PermitActive
	}
}

// Status derives the display status against the current wall clock.
func (p Permit) Status() PermitStatus {
	return p.StatusAt(time.Now().UTC())
}

// DaysUntilExpiry returns the whole number of days from now (UTC midnight) to
// the expiry date (UTC midnight). ok is false when the expiry date cannot be
// parsed.
func (p Permit) DaysUntilExpiry(now time.Time) (int, bool) {
	expiry, ok := DateOnly(p.ExpiryDate)
	if !ok {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(expiry.Sub(today).Hours() / 24), true
}

// FilterPermits returns the subset of permits whose derived status equals
// filter. The filter value "all" (or empty) returns the input set unchanged.
// The input slice is never mutated.
func FilterPermits(permits []*Permit, filter string, now time.Time) []*Permit {
	if filter == "" || filter == "all" {
		return permits
	}

	want := PermitStatus(filter)
	out := make([]*Permit, 0, len(permits))
	for _, p := range permits {
		if p.StatusAt(now) == want {
			out = append(out, p)
		}
	}
	return out
}

// ComputeStats aggregates derived statuses for dashboard counters.
func ComputeStats(permits []Permit, now time.Time) PermitStats {
	var s PermitStats
	for _, p := range permits {
		switch p.StatusAt(now) {
		case PermitActive:
			s.Active++
		case PermitExpiring:
			s.Expiring++
		case PermitExpired:
			s.Expired++
		case PermitSuperseded:
			continue
		}
		s.Total++
	}
	return s
}

// DateOnly parses the calendar-date portion of s, discarding any time or
// zone suffix, and reinterprets it as UTC midnight. Parsing this way keeps
// the displayed day identical to the stored day regardless of the local
// timezone of the machine evaluating it.
func DateOnly(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders a stored date string for display, e.g. "Oct 1, 2021".
// Empty or unparseable input degrades to "N/A" rather than erroring; a bad
// date must never break a render path.
func FormatDate(s string) string {
	t, ok := DateOnly(s)
	if !ok {
		return "N/A"
	}
	return t.Format("Jan 2, 2006")
}
