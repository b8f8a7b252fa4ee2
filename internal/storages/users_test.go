package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/chatwire/chat-service/internal/models"
)

type UsersStorageTestSuite struct {
	PostgresTestSuite
}

func (s *UsersStorageTestSuite) TearDownTest() {
	_, err := s.db.Exec("TRUNCATE users")
	require.NoError(s.T(), err, "can't teardown test")
}

func TestUsersStorageTestSuite(t *testing.T) {
	suite.Run(t, &UsersStorageTestSuite{})
}

func (s *UsersStorageTestSuite) Test_CreateUser() {
	const userId = "74cccd17-9c56-490b-b721-88c027976863"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewUsersStorage(s.db)
	err := store.CreateUser(ctx, &models.User{
		UserID:       userId,
		Username:     "alice",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	})
	assert.NoError(s.T(), err, "should correctly create user")

	user, err := store.GetUserByID(ctx, userId)
	assert.NoError(s.T(), err, "should correctly get user")
	assert.Equal(s.T(), "alice", user.Username)
	assert.False(s.T(), user.IsOnline, "new user should be offline")
}

func (s *UsersStorageTestSuite) Test_CreateUser_CorrectErrorIfUsernameTaken() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewUsersStorage(s.db)
	err := store.CreateUser(ctx, &models.User{
		UserID:       "74cccd17-9c56-490b-b721-88c027976863",
		Username:     "alice",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	})
	assert.NoError(s.T(), err, "should correctly create user")

	err = store.CreateUser(ctx, &models.User{
		UserID:       "67f85047-09d0-42a2-a5ee-9ce8db28cb07",
		Username:     "alice",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	})
	assert.ErrorIs(s.T(), err, ErrUsernameTaken)
}

func (s *UsersStorageTestSuite) Test_GetUserByUsername() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewUsersStorage(s.db)
	err := store.CreateUser(ctx, &models.User{
		UserID:       "74cccd17-9c56-490b-b721-88c027976863",
		Username:     "alice",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	})
	assert.NoError(s.T(), err, "should correctly create user")

	user, err := store.GetUserByUsername(ctx, "alice")
	assert.NoError(s.T(), err, "should correctly get user")
	assert.Equal(s.T(), "74cccd17-9c56-490b-b721-88c027976863", user.UserID)

	_, err = store.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(s.T(), err, ErrUserNotFound)
}

func (s *UsersStorageTestSuite) Test_GetSendersByIDs() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewUsersStorage(s.db)
	users := []models.User{
		{UserID: "74cccd17-9c56-490b-b721-88c027976863", Username: "alice", PasswordHash: "x"},
		{UserID: "67f85047-09d0-42a2-a5ee-9ce8db28cb07", Username: "bob", PasswordHash: "x"},
	}
	for i := range users {
		err := store.CreateUser(ctx, &users[i])
		assert.NoError(s.T(), err, "should correctly create user")
	}

	senders, err := store.GetSendersByIDs(ctx, []string{users[0].UserID, users[1].UserID})
	assert.NoError(s.T(), err, "should correctly get senders")
	assert.Len(s.T(), senders, 2)
	assert.Equal(s.T(), "alice", senders[users[0].UserID].Username)
	assert.Equal(s.T(), "bob", senders[users[1].UserID].Username)

	senders, err = store.GetSendersByIDs(ctx, nil)
	assert.NoError(s.T(), err, "empty input should not fail")
	assert.Empty(s.T(), senders)
}

func (s *UsersStorageTestSuite) Test_SetOnline() {
	const userId = "74cccd17-9c56-490b-b721-88c027976863"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewUsersStorage(s.db)
	err := store.CreateUser(ctx, &models.User{
		UserID:       userId,
		Username:     "alice",
		PasswordHash: "x",
	})
	assert.NoError(s.T(), err, "should correctly create user")

	err = store.SetOnline(ctx, userId, true)
	assert.NoError(s.T(), err, "should correctly set user online")

	online, err := store.ListOnlineUserIDs(ctx)
	assert.NoError(s.T(), err, "should correctly list online users")
	assert.Equal(s.T(), []string{userId}, online)

	err = store.SetOnline(ctx, userId, false)
	assert.NoError(s.T(), err, "should correctly set user offline")

	user, err := store.GetUserByID(ctx, userId)
	assert.NoError(s.T(), err, "should correctly get user")
	assert.False(s.T(), user.IsOnline)
	assert.NotNil(s.T(), user.LastSeen, "going offline should stamp last_seen")

	online, err = store.ListOnlineUserIDs(ctx)
	assert.NoError(s.T(), err, "should correctly list online users")
	assert.Empty(s.T(), online)
}

func (s *UsersStorageTestSuite) Test_SetOnline_CorrectErrorIfUserDoesNotExist() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewUsersStorage(s.db)
	err := store.SetOnline(ctx, "74cccd17-9c56-490b-b721-88c027976863", true)
	assert.ErrorIs(s.T(), err, ErrUserNotFound)
}
