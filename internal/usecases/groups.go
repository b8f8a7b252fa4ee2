package usecases

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chatwire/chat-service/internal/models"
	storage "github.com/chatwire/chat-service/internal/storages"
)

type GroupsUsecase struct {
	registry storage.Registry
}

func NewGroupsUsecase(r storage.Registry) *GroupsUsecase {
	return &GroupsUsecase{
		registry: r,
	}
}

// CreateGroup creates the group, its chat, and the link between them in one
// transaction, with the creator as admin and always a member.
func (u *GroupsUsecase) CreateGroup(ctx context.Context, adminId, name, description string, members []string) (*models.GroupWithMembers, error) {
	if name == "" || len(members) == 0 {
		return nil, fmt.Errorf("%w: name and members required", ErrInvalidRequest)
	}

	found := false
	for _, mem := range members {
		if !ValidateUUID(mem) {
			return nil, fmt.Errorf("%w: member ids must be valid uuids", ErrInvalidRequest)
		}
		if mem == adminId {
			found = true
		}
	}
	if !found {
		members = append(members, adminId)
	}

	group := models.Group{
		GroupID:     uuid.NewString(),
		Name:        name,
		Description: description,
		AdminID:     adminId,
	}

	err := u.registry.Atomic(ctx, func(r storage.Registry) error {
		groups := r.GetGroupsStore()
		chats := r.GetChatsStore()

		if err := groups.CreateGroup(ctx, &group); err != nil {
			return err
		}
		if err := groups.AddGroupMembers(ctx, group.GroupID, members); err != nil {
			return err
		}

		chat, err := chats.UpsertChat(ctx, models.ChatTypeGroup, members)
		if err != nil {
			return err
		}
		if err = chats.AddChatMembers(ctx, chat.ChatID, members); err != nil {
			return err
		}

		if err = groups.SetGroupChat(ctx, group.GroupID, chat.ChatID); err != nil {
			return err
		}
		group.ChatID = &chat.ChatID
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &models.GroupWithMembers{
		Group:   group,
		Members: members,
	}, nil
}

func (u *GroupsUsecase) GetUserGroups(ctx context.Context, userId string) ([]models.GroupWithMembers, error) {
	return u.registry.GetGroupsStore().GetUserGroups(ctx, userId)
}

// AddMember adds a user to the group and keeps the linked chat's membership
// in sync. Only the admin may add members.
func (u *GroupsUsecase) AddMember(ctx context.Context, requesterId, groupId, userId string) error {
	if !ValidateUUID(groupId) || !ValidateUUID(userId) {
		return fmt.Errorf("%w: invalid ids", ErrInvalidRequest)
	}

	group, err := u.registry.GetGroupsStore().GetGroup(ctx, groupId)
	if err != nil {
		return err
	}

	if group.AdminID != requesterId {
		return fmt.Errorf("%w: only admin can add members", ErrPermissionDenied)
	}
	if group.HasMember(userId) {
		return fmt.Errorf("%w: user already in group", ErrInvalidRequest)
	}

	return u.registry.Atomic(ctx, func(r storage.Registry) error {
		if err := r.GetGroupsStore().AddGroupMembers(ctx, groupId, []string{userId}); err != nil {
			return err
		}
		if group.ChatID != nil {
			return r.GetChatsStore().AddChatMembers(ctx, *group.ChatID, []string{userId})
		}
		return nil
	})
}
