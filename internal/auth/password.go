package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

const MinPasswordLength = 8

var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", core.ErrUnauthorized)
	ErrWeakPassword       = core.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	ErrEmailExists        = fmt.Errorf("email already registered: %w", core.ErrConflict)
	ErrMissingEmail       = core.NewValidationError("email", "is required")
)

// ProfileUpdate holds the optional profile fields; nil fields are kept.
type ProfileUpdate struct {
	Name     *string
	Password *string
	Avatar   *string
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	store storage.Store
	cost  int
}

func NewPasswordAuthenticator(store storage.Store) *PasswordAuthenticator {
	return &PasswordAuthenticator{store: store, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost, mainly to keep tests fast.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	a.cost = cost
	return a
}

// NormalizeEmail lowercases and trims an address before any lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Register creates the account and seeds the default categories in one transaction.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, displayName, credential string) (core.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return core.User{}, ErrMissingEmail
	}
	if err := a.ValidateCredential(credential); err != nil {
		return core.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), a.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := core.User{
		Email:        email,
		Name:         strings.TrimSpace(displayName),
		PasswordHash: string(hashed),
	}
	err = a.store.InTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateUser(ctx, &user); err != nil {
			if errors.Is(err, core.ErrConflict) {
				return ErrEmailExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		for _, def := range core.DefaultCategories {
			c := def
			c.OwnerID = user.ID
			if err := tx.CreateCategory(ctx, &c); err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.User{}, err
	}
	return user, nil
}

// Authenticate verifies the email and password. Unknown address and wrong
// password fail identically.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (core.User, error) {
	user, err := a.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile applies the provided fields to the user's profile.
func (a *PasswordAuthenticator) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (core.User, error) {
	user, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return core.User{}, err
	}

	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Avatar != nil {
		user.Avatar = *upd.Avatar
	}
	if upd.Password != nil {
		if err := a.ValidateCredential(*upd.Password); err != nil {
			return core.User{}, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), a.cost)
		if err != nil {
			return core.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := a.store.UpdateUser(ctx, user); err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
