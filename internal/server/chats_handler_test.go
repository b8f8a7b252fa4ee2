package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/chatwire/chat-service/internal/auth"
	"github.com/chatwire/chat-service/internal/blob"
	"github.com/chatwire/chat-service/internal/crypt"
	"github.com/chatwire/chat-service/internal/models"
	storage "github.com/chatwire/chat-service/internal/storages"
	usecase "github.com/chatwire/chat-service/internal/usecases"
	"github.com/chatwire/chat-service/internal/ws"
)

type ChatsHandlerTestSuite struct {
	suite.Suite
	db       *sqlx.DB
	m        *migrate.Migrate
	registry storage.Registry
	chats    *usecase.ChatsUsecase
}

func (s *ChatsHandlerTestSuite) SetupSuite() {
	var err error
	viper.AutomaticEnv()
	dbDsn := viper.GetString("DB_DSN")
	migrationsDsn := viper.GetString("MIGRATIONS_DSN")
	migrationsDir := viper.GetString("MIGRATIONS_DIR")

	s.db, err = sqlx.Connect("pgx", dbDsn)
	require.NoError(s.T(), err, "failed to connect to database")

	s.m, err = migrate.New(migrationsDir, migrationsDsn)

	require.NoError(s.T(), err, "failed to open migrations")

	err = s.m.Up()
	require.NoError(s.T(), err, "failed to migrate database")

	s.registry = storage.NewRegistry(s.db)
	s.chats = usecase.NewChatsUsecase(s.registry, crypt.NewCodec("test-secret"))
}

func (s *ChatsHandlerTestSuite) TearDownSuite() {
	_ = s.m.Down()
	_ = s.db.Close()
}

func (s *ChatsHandlerTestSuite) TearDownTest() {
	_, err := s.db.Exec("TRUNCATE message_reads, messages, chat_members, chats, users")
	require.NoError(s.T(), err, "can't teardown test")
}

func TestChatsHandlerTestSuite(t *testing.T) {
	suite.Run(t, &ChatsHandlerTestSuite{})
}

func (s *ChatsHandlerTestSuite) createUser(ctx context.Context, username string) *models.User {
	user := &models.User{
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	}
	err := s.registry.GetUsersStore().CreateUser(ctx, user)
	require.NoError(s.T(), err, "should correctly create user")
	return user
}

func (s *ChatsHandlerTestSuite) uploadRequest(chatId string, claims *auth.Claims) *http.Request {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(s.T(), err, "should create form file")
	_, err = fw.Write([]byte("hello"))
	require.NoError(s.T(), err, "should write form file")
	require.NoError(s.T(), mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chats/upload/"+chatId, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = mux.SetURLVars(req, map[string]string{"chatId": chatId})
	return req.WithContext(context.WithValue(req.Context(), claimsKey, claims))
}

func (s *ChatsHandlerTestSuite) Test_Upload_ForbiddenLeavesNoFile() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := s.createUser(ctx, "alice")
	bob := s.createUser(ctx, "bob")
	carol := s.createUser(ctx, "carol")

	chat, err := s.chats.ResolveChat(ctx, alice.UserID, usecase.ChatTarget{Kind: usecase.TargetPrivate, ID: bob.UserID})
	require.NoError(s.T(), err, "should correctly resolve chat")

	dir := s.T().TempDir()
	blobs, err := blob.NewDiskStore(dir, "/files")
	require.NoError(s.T(), err, "should init blob store")

	handler := NewChatsHandler(s.chats, blobs, ws.NewHub(), validator.New(), logrus.New())

	rec := httptest.NewRecorder()
	handler.Upload(rec, s.uploadRequest(chat.ChatID, &auth.Claims{UserID: carol.UserID, Username: "carol"}))

	assert.Equal(s.T(), http.StatusForbidden, rec.Code)

	entries, err := os.ReadDir(dir)
	require.NoError(s.T(), err, "should read upload dir")
	assert.Empty(s.T(), entries, "forbidden upload must not leave a file behind")
}

func (s *ChatsHandlerTestSuite) Test_Upload_StoresFileForMember() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := s.createUser(ctx, "alice")
	bob := s.createUser(ctx, "bob")

	chat, err := s.chats.ResolveChat(ctx, alice.UserID, usecase.ChatTarget{Kind: usecase.TargetPrivate, ID: bob.UserID})
	require.NoError(s.T(), err, "should correctly resolve chat")

	dir := s.T().TempDir()
	blobs, err := blob.NewDiskStore(dir, "/files")
	require.NoError(s.T(), err, "should init blob store")

	handler := NewChatsHandler(s.chats, blobs, ws.NewHub(), validator.New(), logrus.New())

	rec := httptest.NewRecorder()
	handler.Upload(rec, s.uploadRequest(chat.ChatID, &auth.Claims{UserID: alice.UserID, Username: "alice"}))

	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	view := models.MessageView{}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(s.T(), models.MessageTypeFile, view.MsgType)
	require.NotNil(s.T(), view.FileName)
	assert.Equal(s.T(), "notes.txt", *view.FileName)

	entries, err := os.ReadDir(dir)
	require.NoError(s.T(), err, "should read upload dir")
	assert.Len(s.T(), entries, 1, "upload should store exactly one file")
}
