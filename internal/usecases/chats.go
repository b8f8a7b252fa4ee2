package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatwire/chat-service/internal/crypt"
	"github.com/chatwire/chat-service/internal/models"
	storage "github.com/chatwire/chat-service/internal/storages"
)

var (
	ErrPermissionDenied     = errors.New("user is not authorized to this action")
	ErrUserIsNotAChatMember = fmt.Errorf("%w: user is not a chat member", ErrPermissionDenied)
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// TargetKind tags the three shapes a client can address a conversation by.
type TargetKind int

const (
	// TargetPrivate addresses the private chat with a recipient user.
	TargetPrivate TargetKind = iota
	// TargetDirect addresses a chat by id; the id may turn out to be a
	// group id, since callers overload the field.
	TargetDirect
	// TargetGroup addresses a group's linked chat.
	TargetGroup
)

type ChatTarget struct {
	Kind TargetKind
	ID   string
}

// NewChatTarget resolves the overloaded chatId/recipientId/groupId triple
// into a tagged target once, at the boundary.
func NewChatTarget(chatId, recipientId, groupId string) (ChatTarget, error) {
	switch {
	case recipientId != "":
		return ChatTarget{Kind: TargetPrivate, ID: recipientId}, nil
	case groupId != "":
		return ChatTarget{Kind: TargetGroup, ID: groupId}, nil
	case chatId != "":
		return ChatTarget{Kind: TargetDirect, ID: chatId}, nil
	default:
		return ChatTarget{}, fmt.Errorf("%w: chat_id, recipient_id or group_id is required", ErrInvalidRequest)
	}
}

type ChatsUsecase struct {
	registry storage.Registry
	codec    *crypt.Codec
}

func NewChatsUsecase(r storage.Registry, codec *crypt.Codec) *ChatsUsecase {
	return &ChatsUsecase{
		registry: r,
		codec:    codec,
	}
}

// ResolveChat maps a target to the canonical chat record, creating it when
// absent. Both the private and the group path go through the storage upsert,
// so concurrent first contacts converge on one chat.
func (u *ChatsUsecase) ResolveChat(ctx context.Context, requesterId string, target ChatTarget) (*models.ChatWithMembers, error) {
	if !ValidateUUID(target.ID) {
		return nil, fmt.Errorf("%w: target id must be a valid uuid", ErrInvalidRequest)
	}

	switch target.Kind {
	case TargetPrivate:
		return u.resolvePrivate(ctx, []string{requesterId, target.ID})
	case TargetGroup:
		return u.resolveGroup(ctx, target.ID)
	default:
		chat, err := u.registry.GetChatsStore().GetChatWithMembers(ctx, target.ID)
		if errors.Is(err, storage.ErrChatNotFound) {
			// The id spaces collide in caller input: a "chat id" may
			// actually name a group.
			return u.resolveGroup(ctx, target.ID)
		}
		return chat, err
	}
}

func (u *ChatsUsecase) resolvePrivate(ctx context.Context, members []string) (*models.ChatWithMembers, error) {
	var chat *models.ChatWithMembers

	err := u.registry.Atomic(ctx, func(r storage.Registry) error {
		chats := r.GetChatsStore()

		created, err := chats.UpsertChat(ctx, models.ChatTypePrivate, members)
		if err != nil {
			return err
		}

		if err = chats.AddChatMembers(ctx, created.ChatID, members); err != nil {
			return err
		}

		chat, err = chats.GetChatWithMembers(ctx, created.ChatID)
		return err
	})

	return chat, err
}

func (u *ChatsUsecase) resolveGroup(ctx context.Context, groupId string) (*models.ChatWithMembers, error) {
	group, err := u.registry.GetGroupsStore().GetGroup(ctx, groupId)
	if err != nil {
		return nil, err
	}

	if group.ChatID != nil {
		chat, err := u.registry.GetChatsStore().GetChatWithMembers(ctx, *group.ChatID)
		if err == nil {
			return chat, nil
		}
		if !errors.Is(err, storage.ErrChatNotFound) {
			return nil, err
		}
		// Stale link: fall through and re-create through the upsert.
	}

	var chat *models.ChatWithMembers

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		chats := r.GetChatsStore()

		created, err := chats.UpsertChat(ctx, models.ChatTypeGroup, group.Members)
		if err != nil {
			return err
		}

		if err = chats.AddChatMembers(ctx, created.ChatID, group.Members); err != nil {
			return err
		}

		if group.ChatID == nil || *group.ChatID != created.ChatID {
			if err = r.GetGroupsStore().SetGroupChat(ctx, groupId, created.ChatID); err != nil {
				return err
			}
		}

		chat, err = chats.GetChatWithMembers(ctx, created.ChatID)
		return err
	})

	return chat, err
}

// SendMessage runs the delivery pipeline: validate, encrypt, persist, update
// the chat summary, and project a view with sender display info. The caller
// decides whether the view gets broadcast.
func (u *ChatsUsecase) SendMessage(ctx context.Context, senderId string, chat *models.ChatWithMembers, content string, msgType string, file *models.FileMeta) (*models.MessageView, error) {
	if file != nil {
		msgType = models.MessageTypeFile
	}
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if msgType != models.MessageTypeText && msgType != models.MessageTypeFile {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidRequest, msgType)
	}
	if content == "" && file == nil {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}
	if len(content) > models.MaxMessageLength {
		return nil, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidRequest, models.MaxMessageLength)
	}

	if !chat.HasMember(senderId) {
		return nil, ErrUserIsNotAChatMember
	}

	now := time.Now().UTC()
	message := models.Message{
		MessageID: uuid.NewString(),
		ChatID:    chat.ChatID,
		SenderID:  senderId,
		MsgType:   msgType,
		CreatedAt: now,
	}

	// display is what clients see and what the chat summary records; the
	// persisted content for text messages is ciphertext.
	var display string
	if file != nil {
		display = content
		if display == "" {
			display = "File: " + file.Name
		}
		message.Content = display
		message.FileURL = &file.URL
		message.FileName = &file.Name
		message.FileSize = &file.Size
		message.FileType = &file.Mime
	} else {
		display = content
		message.Content = u.codec.Encrypt(content, chat.ChatID)
		message.IsEncrypted = message.Content != content
	}

	err := u.registry.Atomic(ctx, func(r storage.Registry) error {
		if err := r.GetMessagesStore().PutMessage(ctx, &message); err != nil {
			return err
		}
		return r.GetChatsStore().UpdateChatSummary(ctx, chat.ChatID, &display, &now)
	})

	if err != nil {
		return nil, err
	}

	sender, err := u.registry.GetUsersStore().GetUserByID(ctx, senderId)
	if err != nil {
		return nil, err
	}

	view := messageToView(&message, models.Sender{UserID: sender.UserID, Username: sender.Username})
	view.Content = display
	return view, nil
}

// GetPrivateMessages returns the newest page of the private chat between the
// two users, oldest-first. The chat is created if it does not exist yet.
func (u *ChatsUsecase) GetPrivateMessages(ctx context.Context, userId1, userId2 string, limit, offset uint64) ([]models.MessageView, error) {
	if !ValidateUUID(userId1) || !ValidateUUID(userId2) || userId1 == userId2 {
		return nil, fmt.Errorf("%w: invalid user ids", ErrInvalidRequest)
	}

	chat, err := u.resolvePrivate(ctx, []string{userId1, userId2})
	if err != nil {
		return nil, err
	}
	return u.getChatHistory(ctx, chat, limit, offset)
}

// GetGroupMessages resolves the group's chat (creating and linking it when
// absent) and returns its newest page, oldest-first.
func (u *ChatsUsecase) GetGroupMessages(ctx context.Context, groupId string, limit, offset uint64) ([]models.MessageView, error) {
	target, err := NewChatTarget(groupId, "", "")
	if err != nil {
		return nil, err
	}

	chat, err := u.ResolveChat(ctx, "", target)
	if err != nil {
		return nil, err
	}
	return u.getChatHistory(ctx, chat, limit, offset)
}

func (u *ChatsUsecase) getChatHistory(ctx context.Context, chat *models.ChatWithMembers, limit, offset uint64) ([]models.MessageView, error) {
	if limit == 0 {
		limit = 20
	}

	messages, err := u.registry.GetMessagesStore().GetChatMessages(ctx, chat.ChatID, limit, offset)
	if err != nil {
		return nil, err
	}

	// Storage returns the page newest-first; flip it for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return u.buildViews(ctx, chat.ChatID, messages)
}

func (u *ChatsUsecase) buildViews(ctx context.Context, chatId string, messages []models.Message) ([]models.MessageView, error) {
	senderIds := make([]string, 0, len(messages))
	seen := map[string]bool{}
	for _, msg := range messages {
		if !seen[msg.SenderID] {
			seen[msg.SenderID] = true
			senderIds = append(senderIds, msg.SenderID)
		}
	}

	senders, err := u.registry.GetUsersStore().GetSendersByIDs(ctx, senderIds)
	if err != nil {
		return nil, err
	}

	views := make([]models.MessageView, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		view := messageToView(msg, senders[msg.SenderID])
		if msg.IsEncrypted {
			view.Content = u.codec.Decrypt(msg.Content, chatId)
		}
		views = append(views, *view)
	}
	return views, nil
}

// ClearPrivateChat purges the history of the private chat between the two
// users and resets its summary. The chat record and membership stay intact.
func (u *ChatsUsecase) ClearPrivateChat(ctx context.Context, requesterId, userId1, userId2 string) (int64, error) {
	if !ValidateUUID(userId1) || !ValidateUUID(userId2) {
		return 0, fmt.Errorf("%w: invalid user ids", ErrInvalidRequest)
	}
	if requesterId != userId1 && requesterId != userId2 {
		return 0, ErrPermissionDenied
	}

	chat, err := u.registry.GetChatsStore().FindChatByMembers(ctx, models.ChatTypePrivate, []string{userId1, userId2})
	if err != nil {
		return 0, err
	}

	return u.clearChat(ctx, chat.ChatID)
}

// ClearGroupChat does the same for a group's linked chat; any group member
// may clear it.
func (u *ChatsUsecase) ClearGroupChat(ctx context.Context, requesterId, groupId string) (int64, error) {
	if !ValidateUUID(groupId) {
		return 0, fmt.Errorf("%w: invalid group id", ErrInvalidRequest)
	}

	group, err := u.registry.GetGroupsStore().GetGroup(ctx, groupId)
	if err != nil {
		return 0, err
	}
	if !group.HasMember(requesterId) {
		return 0, ErrPermissionDenied
	}
	if group.ChatID == nil {
		return 0, storage.ErrChatNotFound
	}

	return u.clearChat(ctx, *group.ChatID)
}

func (u *ChatsUsecase) clearChat(ctx context.Context, chatId string) (deleted int64, err error) {
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		var err error
		deleted, err = r.GetMessagesStore().DeleteChatMessages(ctx, chatId)
		if err != nil {
			return err
		}
		return r.GetChatsStore().UpdateChatSummary(ctx, chatId, nil, nil)
	})
	return deleted, err
}

// MarkChatRead stamps read markers for the user on the chat's messages.
func (u *ChatsUsecase) MarkChatRead(ctx context.Context, userId, chatId string) error {
	if !ValidateUUID(chatId) {
		return fmt.Errorf("%w: invalid chat id", ErrInvalidRequest)
	}

	isMember, err := u.registry.GetChatsStore().UserIsMember(ctx, chatId, userId)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrUserIsNotAChatMember
	}

	return u.registry.GetMessagesStore().MarkChatRead(ctx, chatId, userId)
}

func messageToView(msg *models.Message, sender models.Sender) *models.MessageView {
	return &models.MessageView{
		MessageID: msg.MessageID,
		ChatID:    msg.ChatID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		MsgType:   msg.MsgType,
		FileURL:   msg.FileURL,
		FileName:  msg.FileName,
		FileSize:  msg.FileSize,
		FileType:  msg.FileType,
		CreatedAt: msg.CreatedAt,
		Sender:    sender,
	}
}
