package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/chatwire/chat-service/internal/auth"
)

type AuthUsecaseTestSuite struct {
	UsecaseTestSuite
	auth     *AuthUsecase
	verifier *auth.Verifier
}

func (s *AuthUsecaseTestSuite) SetupSuite() {
	s.UsecaseTestSuite.SetupSuite()
	s.verifier = auth.NewVerifier("test-secret", time.Hour)
	s.auth = NewAuthUsecase(s.registry, s.verifier)
}

func TestAuthUsecaseTestSuite(t *testing.T) {
	suite.Run(t, &AuthUsecaseTestSuite{})
}

func (s *AuthUsecaseTestSuite) Test_Register() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, token, err := s.auth.Register(ctx, "alice", "password123")
	require.NoError(s.T(), err, "should correctly register user")
	assert.Equal(s.T(), "alice", user.Username)
	assert.NotEqual(s.T(), "password123", user.PasswordHash, "password should be hashed")

	claims, err := s.verifier.Verify(token)
	require.NoError(s.T(), err, "issued token should verify")
	assert.Equal(s.T(), user.UserID, claims.UserID)
}

func (s *AuthUsecaseTestSuite) Test_Register_RejectsShortCredentials() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := s.auth.Register(ctx, "al", "password123")
	assert.ErrorIs(s.T(), err, ErrInvalidRequest, "short username should be rejected")

	_, _, err = s.auth.Register(ctx, "alice", "short")
	assert.ErrorIs(s.T(), err, ErrInvalidRequest, "short password should be rejected")
}

func (s *AuthUsecaseTestSuite) Test_Register_RejectsDuplicateUsername() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := s.auth.Register(ctx, "alice", "password123")
	require.NoError(s.T(), err, "should correctly register user")

	_, _, err = s.auth.Register(ctx, "alice", "password456")
	assert.ErrorIs(s.T(), err, ErrInvalidRequest)
}

func (s *AuthUsecaseTestSuite) Test_Login() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	registered, _, err := s.auth.Register(ctx, "alice", "password123")
	require.NoError(s.T(), err, "should correctly register user")

	user, token, err := s.auth.Login(ctx, "alice", "password123")
	require.NoError(s.T(), err, "should correctly log in")
	assert.Equal(s.T(), registered.UserID, user.UserID)
	assert.NotEmpty(s.T(), token)
}

func (s *AuthUsecaseTestSuite) Test_Login_WrongPasswordAndUnknownUserLookAlike() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := s.auth.Register(ctx, "alice", "password123")
	require.NoError(s.T(), err, "should correctly register user")

	_, _, wrongPassword := s.auth.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(s.T(), wrongPassword, ErrInvalidCredentials)

	_, _, unknownUser := s.auth.Login(ctx, "nobody", "password123")
	assert.ErrorIs(s.T(), unknownUser, ErrInvalidCredentials)
}

func (s *AuthUsecaseTestSuite) Test_Logout() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, _, err := s.auth.Register(ctx, "alice", "password123")
	require.NoError(s.T(), err, "should correctly register user")

	err = s.registry.GetUsersStore().SetOnline(ctx, user.UserID, true)
	require.NoError(s.T(), err, "should correctly set user online")

	err = s.auth.Logout(ctx, user.UserID)
	require.NoError(s.T(), err, "should correctly log out")

	got, err := s.auth.GetUser(ctx, user.UserID)
	require.NoError(s.T(), err, "should correctly get user")
	assert.False(s.T(), got.IsOnline)
}
