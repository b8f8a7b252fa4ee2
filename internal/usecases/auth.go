package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chatwire/chat-service/internal/auth"
	"github.com/chatwire/chat-service/internal/models"
	storage "github.com/chatwire/chat-service/internal/storages"
)

type AuthUsecase struct {
	registry storage.Registry
	verifier *auth.Verifier
}

func NewAuthUsecase(r storage.Registry, verifier *auth.Verifier) *AuthUsecase {
	return &AuthUsecase{
		registry: r,
		verifier: verifier,
	}
}

// Register creates a user with a bcrypt credential and issues a token for it.
func (u *AuthUsecase) Register(ctx context.Context, username, password string) (*models.User, string, error) {
	if len(username) < 3 {
		return nil, "", fmt.Errorf("%w: username must be at least 3 characters", ErrInvalidRequest)
	}
	if len(password) < 8 {
		return nil, "", fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidRequest)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: string(hashed),
	}

	if err = u.registry.GetUsersStore().CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			return nil, "", fmt.Errorf("%w: username already exists", ErrInvalidRequest)
		}
		return nil, "", err
	}

	token, err := u.verifier.Issue(user.UserID, user.Username)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks credentials and issues a fresh token. User lookup failures
// and password mismatches are indistinguishable to the caller.
func (u *AuthUsecase) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	if username == "" || password == "" {
		return nil, "", fmt.Errorf("%w: username and password required", ErrInvalidRequest)
	}

	user, err := u.registry.GetUsersStore().GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	} else if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := u.verifier.Issue(user.UserID, user.Username)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (u *AuthUsecase) Logout(ctx context.Context, userId string) error {
	return u.registry.GetUsersStore().SetOnline(ctx, userId, false)
}

func (u *AuthUsecase) GetUser(ctx context.Context, userId string) (*models.User, error) {
	return u.registry.GetUsersStore().GetUserByID(ctx, userId)
}

func (u *AuthUsecase) ListUsers(ctx context.Context) ([]models.User, error) {
	return u.registry.GetUsersStore().ListUsers(ctx)
}
