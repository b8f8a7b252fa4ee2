package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/chatwire/chat-service/internal/models"
)

var (
	ErrChatNotFound = errors.New("chat with provided chat_id does not exist")
	ErrEmptyMembers = errors.New("members array can't be empty")
)

const (
	ChatsPrimaryKey             = "chats_pkey"
	ChatsTypeMembersKey         = "chats_type_members_key_key"
	ChatMembersChatIdForeignKey = "chat_members_chat_id_fkey"
)

type ChatsStorage struct {
	db Scope
}

func NewChatsStorage(db Scope) *ChatsStorage {
	return &ChatsStorage{
		db: db,
	}
}

// UpsertChat inserts a chat for the given member set unless one of the same
// type already exists, and returns the surviving row either way. The ON
// CONFLICT clause on (chat_type, members_key) makes the find-or-create a
// single statement, so concurrent callers racing to create the same chat all
// get the same row.
func (s *ChatsStorage) UpsertChat(ctx context.Context, chatType string, members []string) (*models.Chat, error) {
	if len(members) == 0 {
		return nil, ErrEmptyMembers
	}

	query, args, err := sq.Insert("chats").
		Columns("chat_id", "chat_type", "members_key").
		Values(uuid.NewString(), chatType, models.MembersKey(members)).
		Suffix(`ON CONFLICT (chat_type, members_key)
			DO UPDATE SET members_key = EXCLUDED.members_key
			RETURNING chat_id, chat_type, members_key, last_message, last_message_time, created_at`).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	chat := models.Chat{}
	row := s.db.QueryRowxContext(ctx, query, args...)
	if err = row.StructScan(&chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// AddChatMembers is idempotent: members already present are left alone.
func (s *ChatsStorage) AddChatMembers(ctx context.Context, chatId string, members []string) error {
	if len(members) == 0 {
		return ErrEmptyMembers
	}

	builder := sq.Insert("chat_members").
		Columns("chat_id", "user_id").
		Suffix("ON CONFLICT (chat_id, user_id) DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	for _, member := range members {
		builder = builder.Values(chatId, member)
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if GetPgxConstraintName(err) == ChatMembersChatIdForeignKey {
		return ErrChatNotFound
	} else if err != nil {
		return err
	}

	return s.refreshMembersKey(ctx, chatId)
}

// refreshMembersKey re-derives the chat's member-set identity from the live
// chat_members rows. The upsert keys on members_key, so it must follow every
// membership change or a grown group's chat would still answer for its old
// member set.
func (s *ChatsStorage) refreshMembersKey(ctx context.Context, chatId string) error {
	query := `
		UPDATE chats SET members_key = (
			SELECT string_agg(user_id::text, '_' ORDER BY user_id::text)
			FROM chat_members WHERE chat_id = $1
		) WHERE chat_id = $1`

	_, err := s.db.ExecContext(ctx, query, chatId)
	return err
}

func (s *ChatsStorage) GetChat(ctx context.Context, chatId string) (*models.Chat, error) {
	query, args, err := sq.Select("*").
		From("chats").
		Where(sq.Eq{"chat_id": chatId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	chat := models.Chat{}
	err = s.db.GetContext(ctx, &chat, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	} else if err != nil {
		return nil, err
	} else {
		return &chat, nil
	}
}

// FindChatByMembers looks up a chat by type and exact member set without
// creating one.
func (s *ChatsStorage) FindChatByMembers(ctx context.Context, chatType string, members []string) (*models.Chat, error) {
	if len(members) == 0 {
		return nil, ErrEmptyMembers
	}

	query, args, err := sq.Select("*").
		From("chats").
		Where(sq.Eq{
			"chat_type":   chatType,
			"members_key": models.MembersKey(members),
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	chat := models.Chat{}
	err = s.db.GetContext(ctx, &chat, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	} else if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *ChatsStorage) GetChatWithMembers(ctx context.Context, chatId string) (*models.ChatWithMembers, error) {
	chat, err := s.GetChat(ctx, chatId)

	if err != nil {
		return nil, err
	}

	query, args, err := sq.Select("user_id").
		From("chat_members").
		Where(sq.Eq{"chat_id": chatId}).
		OrderBy("user_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	members := make([]models.ChatMember, 0)
	if err = s.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, err
	}

	return &models.ChatWithMembers{
		Chat:    *chat,
		Members: members,
	}, nil
}

func (s *ChatsStorage) UserIsMember(ctx context.Context, chatId string, userId string) (bool, error) {
	// Check if chat exists
	_, err := s.GetChat(ctx, chatId)
	if err != nil {
		return false, err
	}

	query, args, err := sq.Select("1").
		From("chat_members").
		Where(sq.Eq{
			"chat_id": chatId,
			"user_id": userId,
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return false, err
	}

	ok := false
	row := s.db.QueryRowxContext(ctx, query, args...)
	err = row.Scan(&ok)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return ok, nil
}

// UpdateChatSummary sets the denormalized last-message fields. Passing nils
// resets them, which is what chat clearing does.
func (s *ChatsStorage) UpdateChatSummary(ctx context.Context, chatId string, lastMessage *string, lastMessageTime *time.Time) error {
	query, args, err := sq.Update("chats").
		Set("last_message", lastMessage).
		Set("last_message_time", lastMessageTime).
		Where(sq.Eq{"chat_id": chatId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

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
		return ErrChatNotFound
	}
	return nil
}
