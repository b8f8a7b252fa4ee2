package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type AtomicFunc func(Registry) error

// Registry hands out per-aggregate storages bound to a common scope. Atomic
// runs fn against a registry whose storages share one transaction; the
// find-or-create chat upsert and the group-creation flow rely on it.
type Registry interface {
	Atomic(ctx context.Context, fn AtomicFunc) error
	GetUsersStore() *UsersStorage
	GetChatsStore() *ChatsStorage
	GetGroupsStore() *GroupsStorage
	GetMessagesStore() *MessagesStorage
}

type DefaultRegistry struct {
	db    *sqlx.DB
	scope Scope
}

type Scope interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	sqlx.Execer
	sqlx.Queryer
	Get(dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExec(query string, arg interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	NamedQuery(query string, arg interface{}) (*sqlx.Rows, error)
}

func NewRegistry(db *sqlx.DB) *DefaultRegistry {
	return &DefaultRegistry{
		db:    db,
		scope: db,
	}
}

func (r *DefaultRegistry) Atomic(ctx context.Context, fn AtomicFunc) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("rollback caused by error: \"%v\" failed: %v", err, rbErr)
			}
		} else {
			err = tx.Commit()
		}
	}()

	storage := DefaultRegistry{
		db:    r.db,
		scope: tx,
	}
	err = fn(&storage)
	return err
}

func (r *DefaultRegistry) GetUsersStore() *UsersStorage {
	return NewUsersStorage(r.scope)
}

func (r *DefaultRegistry) GetChatsStore() *ChatsStorage {
	return NewChatsStorage(r.scope)
}

func (r *DefaultRegistry) GetGroupsStore() *GroupsStorage {
	return NewGroupsStorage(r.scope)
}

func (r *DefaultRegistry) GetMessagesStore() *MessagesStorage {
	return NewMessagesStorage(r.scope)
}
