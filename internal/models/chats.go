package models

import (
	"sort"
	"strings"
	"time"
)

const (
	ChatTypePrivate = "private"
	ChatTypeGroup   = "group"
)

type Chat struct {
	ChatID          string     `json:"chat_id" db:"chat_id"`
	ChatType        string     `json:"chat_type" db:"chat_type"`
	MembersKey      string     `json:"-" db:"members_key"`
	LastMessage     *string    `json:"last_message" db:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time" db:"last_message_time"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

type ChatMember struct {
	UserID string `json:"user_id" db:"user_id"`
}

type ChatWithMembers struct {
	Chat
	Members []ChatMember `json:"members"`
}

func (c *ChatWithMembers) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MembersKey builds the canonical identity of a chat's member set: the ids
// sorted and joined with "_". The same set of users always produces the same
// key regardless of who initiates, which is what the unique constraint on
// (chat_type, members_key) relies on.
func MembersKey(userIDs []string) string {
	sorted := make([]string, len(userIDs))
	copy(sorted, userIDs)
	sort.Strings(sorted)
	return strings.Join(sorted, "_")
}
