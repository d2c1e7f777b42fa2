package handler

import (
	"time"

	"github.com/facilityops/facility-system/internal/core/domain"
)

// permitResponse is the wire shape for a permit. Status is derived at render
// time, never read from storage, so it is always current.
type permitResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Number            string    `json:"number"`
	IssueDate         string    `json:"issue_date,omitempty"`
	IssueDateDisplay  string    `json:"issue_date_display"`
	ExpiryDate        string    `json:"expiry_date"`
	ExpiryDateDisplay string    `json:"expiry_date_display"`
	IssuedBy          string    `json:"issued_by,omitempty"`
	Status            string    `json:"status"`
	DaysUntilExpiry   *int      `json:"days_until_expiry,omitempty"`
	IsActive          bool      `json:"is_active"`
	ParentID          string    `json:"parent_id,omitempty"`
	RenewalURL        string    `json:"renewal_url,omitempty"`
	DocumentKey       string    `json:"document_key,omitempty"`
	FacilityID        string    `json:"facility_id"`
	UploadedByID      string    `json:"uploaded_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toPermitResponse(p *domain.Permit, now time.Time) permitResponse {
	resp := permitResponse{
		ID:                p.ID,
		Name:              p.Name,
		Number:            p.Number,
		IssueDate:         p.IssueDate,
		IssueDateDisplay:  domain.FormatDate(p.IssueDate),
		ExpiryDate:        p.ExpiryDate,
		ExpiryDateDisplay: domain.FormatDate(p.ExpiryDate),
		IssuedBy:          p.IssuedBy,
		Status:            string(p.StatusAt(now)),
		IsActive:          p.IsActive,
		ParentID:          p.ParentID,
		RenewalURL:        p.RenewalURL,
		DocumentKey:       p.DocumentKey,
		FacilityID:        p.FacilityID,
		UploadedByID:      p.UploadedByID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if days, ok := p.DaysUntilExpiry(now); ok {
		resp.DaysUntilExpiry = &days
	}
	return resp
}

func toPermitResponses(permits []*domain.Permit, now time.Time) []permitResponse {
	out := make([]permitResponse, 0, len(permits))
	for _, p := range permits {
		out = append(out, toPermitResponse(p, now))
	}
	return out
}
