package ports

import (
	"context"

	"github.com/facilityops/facility-system/internal/core/domain"
)

// LoginInput carries the credentials posted to the login endpoint.
// OTPCode is required only when the account has two-factor auth enabled;
// a backup code is accepted in its place.
type LoginInput struct {
	Username string
	Password string
	OTPCode  string
	ClientIP string
}

// TokenPair is the credential pair issued on login and refresh. The refresh
// token is opaque; only its hash is stored server-side.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// LoginResult bundles the issued tokens with the authenticated user.
type LoginResult struct {
	Tokens TokenPair
	User   *domain.User
}

// TwoFactorSetup is returned when provisioning TOTP for an account.
type TwoFactorSetup struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	BackupCodes     []string `json:"backup_codes"`
}

// AuthService owns login, token refresh, logout, and 2FA provisioning.
type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	// Refresh exchanges a valid refresh token for a new access token.
	// The refresh token itself is not rotated, so concurrent exchanges with
	// the same token are idempotent.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Logout revokes the refresh token. Revoking an already-revoked token
	// is not an error.
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID, current, next string) error
	SetupTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error)
	ConfirmTwoFactor(ctx context.Context, userID, otpCode string) error
	DisableTwoFactor(ctx context.Context, userID, password string) error
}

// RefreshTokenStore persists refresh-token state keyed by token hash.
type RefreshTokenStore interface {
	// Save associates the token hash with a user id for the given TTL in seconds.
	Save(ctx context.Context, hash, userID string, ttlSeconds int) error
	// Lookup resolves a token hash to the owning user id.
	// Returns domain.ErrInvalidRefreshToken when absent or expired.
	Lookup(ctx context.Context, hash string) (string, error)
	Delete(ctx context.Context, hash string) error
}
