package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/ekaya-inc/datadoc-engine/pkg/apperrors"
	"github.com/ekaya-inc/datadoc-engine/pkg/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create stores a new user. Returns ErrConflict if the email or the user
	// name is taken.
	Create(ctx context.Context, user *models.User) error
	// GetByEmail returns the user registered with email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByUserName returns the user registered with userName (case-insensitive).
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	Count(ctx context.Context) int
}

// userRepository keeps users in process memory. Accounts never expire and are
// lost on restart.
type userRepository struct {
	users *cache.Cache
	// names maps a normalized user name to the owner's email key.
	names *cache.Cache
}

// NewUserRepository creates a new in-memory user repository.
func NewUserRepository() UserRepository {
	return &userRepository{
		users: cache.New(cache.NoExpiration, 0),
		names: cache.New(cache.NoExpiration, 0),
	}
}

var _ UserRepository = (*userRepository)(nil)

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	stored := *user
	key := normalizeKey(user.Email)
	if err := r.users.Add(key, &stored, cache.NoExpiration); err != nil {
		return fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
	}

	if name := normalizeKey(user.UserName); name != "" {
		if err := r.names.Add(name, key, cache.NoExpiration); err != nil {
			r.users.Delete(key)
			return fmt.Errorf("%w: user name already registered", apperrors.ErrConflict)
		}
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	v, found := r.users.Get(normalizeKey(email))
	if !found {
		return nil, apperrors.ErrNotFound
	}
	user := *v.(*models.User)
	return &user, nil
}

func (r *userRepository) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	key, found := r.names.Get(normalizeKey(userName))
	if !found {
		return nil, apperrors.ErrNotFound
	}
	return r.GetByEmail(ctx, key.(string))
}

func (r *userRepository) Count(ctx context.Context) int {
	return r.users.ItemCount()
}

func normalizeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
