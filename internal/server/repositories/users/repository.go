// Package users provides the credential store: persistence of user records
// keyed by id and normalized email.
package users

import (
	"context"

	"github.com/avdeev/authgate/internal/server/models"
)

// Repository is the persistence contract the authentication workflow relies
// on. Implementations must guarantee uniqueness on the (normalized) email.
type Repository interface {
	// Create persists a new user and returns it with its generated id.
	// A duplicate email yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail looks a user up by normalized email.
	// Absence yields common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID looks a user up by id. Absence yields common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// MarkEmailVerified flips is_email_verified to true exactly once.
	// A second call (or a concurrent duplicate) yields common.ErrorConflict;
	// an unknown id yields common.ErrorNotFound.
	MarkEmailVerified(ctx context.Context, id string) error

	// IncrementTokenVersion bumps the revocation counter and returns the new
	// value, invalidating every previously issued token for the user.
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)
}
