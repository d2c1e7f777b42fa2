package client

import "time"

// Wire types mirror the API's JSON contract. They are deliberately separate
// from the server's internal types so the SDK compiles against the contract,
// not the implementation.

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email,omitempty"`
	Role             string    `json:"role"`
	IsSuperuser      bool      `json:"is_superuser"`
	Organization     string    `json:"organization,omitempty"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	LastLoginAt      time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

type TwoFactorSetup struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	BackupCodes     []string `json:"backup_codes"`
}

type Tank struct {
	Label            string `json:"label"`
	Product          string `json:"product,omitempty"`
	Status           string `json:"status"`
	Size             string `json:"size,omitempty"`
	Material         string `json:"material,omitempty"`
	ReleaseDetection string `json:"release_detection,omitempty"`
	PipingMaterial   string `json:"piping_material,omitempty"`
	Installed        string `json:"installed,omitempty"`
}

type Facility struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	StreetAddress string    `json:"street_address,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	ZipCode       string    `json:"zip_code,omitempty"`
	Country       string    `json:"country"`
	Type          string    `json:"facility_type"`
	Description   string    `json:"description,omitempty"`
	IsActive      bool      `json:"is_active"`
	Tanks         []Tank    `json:"tanks"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Permit struct {
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
	FacilityID        string    `json:"facility_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type PermitHistoryEntry struct {
	ID          string    `json:"id"`
	PermitID    string    `json:"permit_id"`
	Action      string    `json:"action"`
	UserID      string    `json:"user_id,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	DocumentURL string    `json:"document_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type PermitStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Expiring int `json:"expiring"`
	Expired  int `json:"expired"`
}

type PermissionCategory struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

type Permission struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"permission_type"`
	Admin       bool   `json:"admin"`
	Contributor bool   `json:"contributor"`
	Viewer      bool   `json:"viewer"`
}

// APIError is the server's error envelope surfaced on non-2xx responses.
type APIError struct {
	StatusCode int               `json:"-"`
	Message    string            `json:"error"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}
