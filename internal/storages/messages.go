package storage

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/chatwire/chat-service/internal/models"
)

var (
	ErrMessageAlreadyExists = errors.New("message with provided message_id already exists")
	ErrMessageNotFound      = errors.New("message does not exist")
)

const (
	MessagesPrimaryKey       = "messages_pkey"
	MessagesChatIdForeignKey = "messages_chat_id_fkey"
)

type MessagesStorage struct {
	db Scope
}

func NewMessagesStorage(db Scope) *MessagesStorage {
	return &MessagesStorage{
		db: db,
	}
}

func (s *MessagesStorage) PutMessage(ctx context.Context, message *models.Message) error {
	query, args, err := sq.Insert("messages").
		Columns("message_id", "chat_id", "sender_id", "content", "msg_type",
			"file_url", "file_name", "file_size", "file_type", "is_encrypted", "created_at").
		Values(message.MessageID, message.ChatID, message.SenderID, message.Content, message.MsgType,
			message.FileURL, message.FileName, message.FileSize, message.FileType, message.IsEncrypted, message.CreatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	if GetPgxConstraintName(err) == MessagesChatIdForeignKey {
		return ErrChatNotFound
	} else if GetPgxConstraintName(err) == MessagesPrimaryKey {
		return ErrMessageAlreadyExists
	} else if err != nil {
		return err
	}

	return nil
}

type SelectOptions struct {
	Limit   uint64
	Offset  uint64
	OrderBy []string
}

func (s *MessagesStorage) SelectMessages(ctx context.Context, selector sq.Sqlizer, options ...SelectOptions) ([]models.Message, error) {
	option := SelectOptions{}
	if len(options) > 0 {
		option = options[0]
	}

	builder := sq.Select("*").
		From("messages").
		Where(selector).
		PlaceholderFormat(sq.Dollar)

	if len(option.OrderBy) > 0 {
		builder = builder.OrderBy(option.OrderBy...)
	}

	if option.Limit > 0 {
		builder = builder.Limit(option.Limit)
	}

	if option.Offset > 0 {
		builder = builder.Offset(option.Offset)
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0)
	err = s.db.SelectContext(ctx, &messages, query, args...)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// GetChatMessages returns the newest page of a chat's history, newest first.
// Callers reverse it for display so the page reads oldest-first.
func (s *MessagesStorage) GetChatMessages(ctx context.Context, chatId string, limit, offset uint64) ([]models.Message, error) {
	return s.SelectMessages(ctx, sq.Eq{"chat_id": chatId}, SelectOptions{
		Limit:   limit,
		Offset:  offset,
		OrderBy: []string{"created_at DESC"},
	})
}

// DeleteChatMessages purges a chat's history and returns the removed count.
func (s *MessagesStorage) DeleteChatMessages(ctx context.Context, chatId string) (int64, error) {
	query, args, err := sq.Delete("messages").
		Where(sq.Eq{"chat_id": chatId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// MarkChatRead stamps a read marker on every message of the chat for the
// given user. Re-running it is safe: existing markers are kept as is.
func (s *MessagesStorage) MarkChatRead(ctx context.Context, chatId string, userId string) error {
	query := `
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT message_id, $1, now() FROM messages WHERE chat_id = $2
		ON CONFLICT (message_id, user_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query, userId, chatId)
	return err
}

func (s *MessagesStorage) GetReadMarkers(ctx context.Context, messageIds []string) ([]models.ReadMarker, error) {
	selector := sq.Or{}
	for _, id := range messageIds {
		selector = append(selector, sq.Eq{"message_id": id})
	}

	query, args, err := sq.Select("*").
		From("message_reads").
		Where(selector).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	markers := make([]models.ReadMarker, 0)
	err = s.db.SelectContext(ctx, &markers, query, args...)
	return markers, err
}
