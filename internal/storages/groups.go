package storage

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/chatwire/chat-service/internal/models"
)

var (
	ErrGroupNotFound      = errors.New("group with provided group_id does not exist")
	ErrGroupAlreadyExists = errors.New("group with provided group_id already exists")
)

const (
	GroupsPrimaryKey              = "groups_pkey"
	GroupMembersGroupIdForeignKey = "group_members_group_id_fkey"
)

type GroupsStorage struct {
	db Scope
}

func NewGroupsStorage(db Scope) *GroupsStorage {
	return &GroupsStorage{
		db: db,
	}
}

func (s *GroupsStorage) CreateGroup(ctx context.Context, group *models.Group) error {
	query, args, err := sq.Insert("groups").
		Columns("group_id", "name", "description", "admin_id").
		Values(group.GroupID, group.Name, group.Description, group.AdminID).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	if GetPgxConstraintName(err) == GroupsPrimaryKey {
		return ErrGroupAlreadyExists
	} else {
		return err
	}
}

// AddGroupMembers is idempotent like AddChatMembers.
func (s *GroupsStorage) AddGroupMembers(ctx context.Context, groupId string, members []string) error {
	if len(members) == 0 {
		return ErrEmptyMembers
	}

	builder := sq.Insert("group_members").
		Columns("group_id", "user_id").
		Suffix("ON CONFLICT (group_id, user_id) DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	for _, member := range members {
		builder = builder.Values(groupId, member)
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if GetPgxConstraintName(err) == GroupMembersGroupIdForeignKey {
		return ErrGroupNotFound
	} else {
		return err
	}
}

func (s *GroupsStorage) GetGroup(ctx context.Context, groupId string) (*models.GroupWithMembers, error) {
	query, args, err := sq.Select("*").
		From("groups").
		Where(sq.Eq{"group_id": groupId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	group := models.Group{}
	err = s.db.GetContext(ctx, &group, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	} else if err != nil {
		return nil, err
	}

	members, err := s.getGroupMembers(ctx, groupId)
	if err != nil {
		return nil, err
	}

	return &models.GroupWithMembers{
		Group:   group,
		Members: members,
	}, nil
}

func (s *GroupsStorage) getGroupMembers(ctx context.Context, groupId string) ([]string, error) {
	query, args, err := sq.Select("user_id").
		From("group_members").
		Where(sq.Eq{"group_id": groupId}).
		OrderBy("user_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	members := make([]string, 0)
	err = s.db.SelectContext(ctx, &members, query, args...)
	return members, err
}

func (s *GroupsStorage) GetUserGroups(ctx context.Context, userId string) ([]models.GroupWithMembers, error) {
	query, args, err := sq.Select("groups.*").
		From("groups").
		Join("group_members USING(group_id)").
		Where(sq.Eq{"user_id": userId}).
		OrderBy("created_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0)
	if err = s.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, err
	}

	withMembers := make([]models.GroupWithMembers, 0, len(groups))
	for _, group := range groups {
		members, err := s.getGroupMembers(ctx, group.GroupID)
		if err != nil {
			return nil, err
		}
		withMembers = append(withMembers, models.GroupWithMembers{
			Group:   group,
			Members: members,
		})
	}
	return withMembers, nil
}

// SetGroupChat links a group to its chat. The link is a repair step, not a
// cache: re-running it with the same chat id is a no-op.
func (s *GroupsStorage) SetGroupChat(ctx context.Context, groupId string, chatId string) error {
	query, args, err := sq.Update("groups").
		Set("chat_id", chatId).
		Where(sq.Eq{"group_id": groupId}).
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
		return ErrGroupNotFound
	}
	return nil
}
