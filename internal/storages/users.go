package storage

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/chatwire/chat-service/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user with provided id does not exist")
	ErrUsernameTaken = errors.New("user with provided username already exists")
)

const (
	UsersPrimaryKey  = "users_pkey"
	UsersUsernameKey = "users_username_key"
)

type UsersStorage struct {
	db Scope
}

func NewUsersStorage(db Scope) *UsersStorage {
	return &UsersStorage{
		db: db,
	}
}

func (s *UsersStorage) CreateUser(ctx context.Context, user *models.User) error {
	query, args, err := sq.Insert("users").
		Columns("user_id", "username", "password_hash").
		Values(user.UserID, user.Username, user.PasswordHash).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch GetPgxConstraintName(err) {
	case UsersUsernameKey:
		return ErrUsernameTaken
	default:
		return err
	}
}

func (s *UsersStorage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.getUserBy(ctx, sq.Eq{"user_id": userID})
}

func (s *UsersStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUserBy(ctx, sq.Eq{"username": username})
}

func (s *UsersStorage) getUserBy(ctx context.Context, selector sq.Sqlizer) (*models.User, error) {
	query, args, err := sq.Select("*").
		From("users").
		Where(selector).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	user := models.User{}
	err = s.db.GetContext(ctx, &user, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UsersStorage) ListUsers(ctx context.Context) ([]models.User, error) {
	query, args, err := sq.Select("*").
		From("users").
		OrderBy("username").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0)
	err = s.db.SelectContext(ctx, &users, query, args...)
	return users, err
}

// GetSendersByIDs returns display projections keyed by user id.
func (s *UsersStorage) GetSendersByIDs(ctx context.Context, userIDs []string) (map[string]models.Sender, error) {
	senders := make(map[string]models.Sender, len(userIDs))
	if len(userIDs) == 0 {
		return senders, nil
	}

	selector := sq.Or{}
	for _, id := range userIDs {
		selector = append(selector, sq.Eq{"user_id": id})
	}

	query, args, err := sq.Select("user_id", "username").
		From("users").
		Where(selector).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	rows := make([]models.Sender, 0)
	if err = s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	for _, sender := range rows {
		senders[sender.UserID] = sender
	}
	return senders, nil
}

// SetOnline flips the presence flag. Going offline also stamps last_seen.
func (s *UsersStorage) SetOnline(ctx context.Context, userID string, online bool) error {
	builder := sq.Update("users").
		Set("is_online", online).
		Where(sq.Eq{"user_id": userID}).
		PlaceholderFormat(sq.Dollar)

	if !online {
		builder = builder.Set("last_seen", sq.Expr("now()"))
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UsersStorage) ListOnlineUserIDs(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("user_id").
		From("users").
		Where(sq.Eq{"is_online": true}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	err = s.db.SelectContext(ctx, &ids, query, args...)
	return ids, err
}
