package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin       = "admin"
	RoleContributor = "contributor"
	RoleViewer      = "viewer"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 30 * time.Minute
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrAccountLocked = errors.New("account temporarily locked")
var ErrOTPRequired = errors.New("one-time code required")
var ErrInvalidOTP = errors.New("invalid one-time code")
var ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
var ErrForbidden = errors.New("access forbidden")

// ValidRole reports whether role is one of the three assignable roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleContributor || role == RoleViewer
}

// User models an authenticated actor in the system.
type User struct {
	ID           string `json:"id" bson:"_id,omitempty"`
	Username     string `json:"username" bson:"username"`
	Email        string `json:"email,omitempty" bson:"email,omitempty"`
	PasswordHash string `json:"-" bson:"password_hash"`
	Role         string `json:"role" bson:"role"`
	IsSuperuser  bool   `json:"is_superuser" bson:"is_superuser"`
	Organization string `json:"organization,omitempty" bson:"organization,omitempty"`

	TwoFactorEnabled bool     `json:"two_factor_enabled" bson:"two_factor_enabled"`
	TOTPSecret       string   `json:"-" bson:"totp_secret,omitempty"`
	BackupCodes      []string `json:"-" bson:"backup_codes,omitempty"`

	FailedLoginAttempts int       `json:"-" bson:"failed_login_attempts"`
	LockedUntil         time.Time `json:"-" bson:"locked_until,omitempty"`
	LastLoginAt         time.Time `json:"last_login_at,omitempty" bson:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// EffectiveRole resolves the role used for authorization decisions.
// The superuser flag overrides the stored role to admin-equivalent.
func (u User) EffectiveRole() string {
	if u.IsSuperuser {
		return RoleAdmin
	}
	return u.Role
}

// IsLocked reports whether the account is locked out at the given instant.
func (u User) IsLocked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && now.Before(u.LockedUntil)
}

// RegisterFailedLogin bumps the failure counter and engages the lockout once
// the threshold is reached. Returns true when this attempt locked the account.
func (u *User) RegisterFailedLogin(now time.Time) bool {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxFailedLogins {
		u.LockedUntil = now.Add(lockoutDuration)
		return true
	}
	return false
}

// ResetFailedLogins clears the failure counter and any pending lockout.
func (u *User) ResetFailedLogins() {
	u.FailedLoginAttempts = 0
	u.LockedUntil = time.Time{}
}

// UseBackupCode consumes a 2FA backup code. Returns false when the code is
// not among the remaining unused codes.
func (u *User) UseBackupCode(code string) bool {
	for i, c := range u.BackupCodes {
		if c == code {
			u.BackupCodes = append(u.BackupCodes[:i], u.BackupCodes[i+1:]...)
			return true
		}
	}
	return false
}
