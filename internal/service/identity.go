package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
)

// Identity resolves principals by ID.
type Identity interface {
	// Lookup returns the principal or a NotFound USER_NOT_FOUND error.
	Lookup(ctx context.Context, id uuid.UUID) (model.Principal, error)
}

// Enrollment records the user behind an externally issued identity.
type Enrollment interface {
	// Enroll stores the user once; a second enrollment of the same ID or username conflicts.
	Enroll(ctx context.Context, id uuid.UUID, username, role string) (*model.User, error)
}

type IdentityImpl struct {
	users repository.UserRepository
	now   func() time.Time
}

// NewIdentity constructs an Identity backed by the user repository.
func NewIdentity(users repository.UserRepository) *IdentityImpl {
	return &IdentityImpl{users: users, now: clock}
}

func (s *IdentityImpl) Enroll(ctx context.Context, id uuid.UUID, username, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	switch {
	case id == uuid.Nil:
		return nil, errs.Validation(errs.CodeValidationFailed, "user id is required")
	case username == "":
		return nil, errs.Validation(errs.CodeValidationFailed, "username is required")
	case role != model.RoleUser && role != model.RoleArtist:
		return nil, errs.Validation(errs.CodeValidationFailed, "role must be user or artist")
	}
	u := &model.User{ID: id, Username: username, Role: role, CreatedAt: s.now()}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.Conflict(errs.CodeUserExists, "user already enrolled")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *IdentityImpl) Lookup(ctx context.Context, id uuid.UUID) (model.Principal, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Principal{}, errs.NotFound(errs.CodeUserNotFound, "user not found")
		}
		return model.Principal{}, err
	}
	return model.Principal{ID: u.ID, Role: u.Role}, nil
}
