package ports

import (
	"context"
	"sort"
	"strings"

	"github.com/facilityops/facility-system/internal/core/domain"
)

// FieldErrors maps field names to validation messages. It is surfaced
// verbatim to API callers so forms can render errors field by field.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msg := range fe {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// CreateUserInput carries the admin-supplied fields for a new account.
type CreateUserInput struct {
	Username     string
	Email        string
	Password     string
	Role         string
	Organization string
}

// UpdateUserInput carries a partial update; nil pointers leave the field
// unchanged.
type UpdateUserInput struct {
	Email        *string
	Role         *string
	Organization *string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}

// UserService owns admin user management and the permissions matrix.
type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, actorID, id string) error
	Unlock(ctx context.Context, id string) error
	PermissionsMatrix(ctx context.Context) []domain.PermissionCategory
}
