package usecases

import (
	"context"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/chatwire/chat-service/internal/crypt"
	"github.com/chatwire/chat-service/internal/models"
	storage "github.com/chatwire/chat-service/internal/storages"
)

type UsecaseTestSuite struct {
	suite.Suite
	db       *sqlx.DB
	m        *migrate.Migrate
	registry storage.Registry
	codec    *crypt.Codec
}

func (s *UsecaseTestSuite) SetupSuite() {
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
	s.codec = crypt.NewCodec("test-secret")
}

func (s *UsecaseTestSuite) TearDownSuite() {
	_ = s.m.Down()
	_ = s.db.Close()
}

func (s *UsecaseTestSuite) TearDownTest() {
	_, err := s.db.Exec("TRUNCATE message_reads, messages, group_members, groups, chat_members, chats, users")
	require.NoError(s.T(), err, "can't teardown test")
}

func (s *UsecaseTestSuite) createUser(ctx context.Context, username string) *models.User {
	user := &models.User{
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	}
	err := s.registry.GetUsersStore().CreateUser(ctx, user)
	require.NoError(s.T(), err, "should correctly create user")
	return user
}
