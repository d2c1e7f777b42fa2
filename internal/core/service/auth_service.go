package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/facilityops/facility-system/internal/core/domain"
	"github.com/facilityops/facility-system/internal/core/ports"
)

const totpIssuer = "Facility Management System"

// AuthService implements login, token refresh, logout, and 2FA provisioning.
type AuthService struct {
	users      ports.UserRepository
	tokens     ports.RefreshTokenStore
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	tokens ports.RefreshTokenStore,
	jwtSecret string,
	accessTTL, refreshTTL time.Duration,
	logger zerolog.Logger,
) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Login authenticates the credentials and issues an access/refresh pair.
// Failed attempts count toward the account lockout; a locked account rejects
// even a correct password until the lockout elapses.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	if in.Username == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		// Do not reveal whether the account exists.
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()
	if user.IsLocked(now) {
		return nil, domain.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		locked := user.RegisterFailedLogin(now)
		if err := s.users.Update(ctx, user); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to persist login failure")
		}
		if locked {
			s.logger.Warn().Str("user_id", user.ID).Str("ip", in.ClientIP).Msg("account locked after repeated failures")
			return nil, domain.ErrAccountLocked
		}
		return nil, domain.ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		if in.OTPCode == "" {
			return nil, domain.ErrOTPRequired
		}
		if !s.verifyOTP(ctx, user, in.OTPCode) {
			return nil, domain.ErrInvalidOTP
		}
	}

	user.ResetFailedLogins()
	user.LastLoginAt = now
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to persist login state")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", user.EffectiveRole()).Msg("user logged in")
	return &ports.LoginResult{Tokens: *pair, User: user}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token is not rotated, so two concurrent exchanges with the same
// token both succeed and leave the store usable for the next call.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidRefreshToken
	}

	userID, err := s.tokens.Lookup(ctx, HashRefreshToken(refreshToken))
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		// User deleted since the token was minted: revoke and reject.
		_ = s.tokens.Delete(ctx, HashRefreshToken(refreshToken))
		return nil, domain.ErrInvalidRefreshToken
	}

	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return &ports.TokenPair{Access: access}, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.Delete(ctx, HashRefreshToken(refreshToken))
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < 8 {
		return ports.FieldErrors{"new_password": "must be at least 8 characters"}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

// SetupTwoFactor provisions a TOTP secret and backup codes. Two-factor auth
// stays disabled until ConfirmTwoFactor verifies a code against the secret.
func (s *AuthService) SetupTwoFactor(ctx context.Context, userID string) (*ports.TwoFactorSetup, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	account := user.Email
	if account == "" {
		account = user.Username
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: account})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	codes := generateBackupCodes(10)
	user.TOTPSecret = key.Secret()
	user.BackupCodes = codes
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return &ports.TwoFactorSetup{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		BackupCodes:     codes,
	}, nil
}

func (s *AuthService) ConfirmTwoFactor(ctx context.Context, userID, otpCode string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" || !totp.Validate(otpCode, user.TOTPSecret) {
		return domain.ErrInvalidOTP
	}
	user.TwoFactorEnabled = true
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

func (s *AuthService) DisableTwoFactor(ctx context.Context, userID, password string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.ErrInvalidCredentials
	}
	user.TwoFactorEnabled = false
	user.TOTPSecret = ""
	user.BackupCodes = nil
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

func (s *AuthService) verifyOTP(ctx context.Context, user *domain.User, code string) bool {
	if user.TOTPSecret != "" && totp.Validate(code, user.TOTPSecret) {
		return true
	}
	if user.UseBackupCode(strings.ToUpper(code)) {
		if err := s.users.Update(ctx, user); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to consume backup code")
		}
		return true
	}
	return false
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*ports.TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Save(ctx, HashRefreshToken(refresh), user.ID, int(s.refreshTTL.Seconds())); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &ports.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) generateAccessToken(user *domain.User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.EffectiveRole(),
		"org":      user.Organization,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// newRefreshToken returns a 256-bit random opaque token.
func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashRefreshToken produces the SHA-256 digest stored server-side in place
// of the raw refresh token.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func generateBackupCodes(n int) []string {
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		buf := make([]byte, 4)
		_, _ = rand.Read(buf)
		codes = append(codes, strings.ToUpper(hex.EncodeToString(buf)))
	}
	return codes
}
