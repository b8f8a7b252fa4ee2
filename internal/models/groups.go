package models

import "time"

type Group struct {
	GroupID        string    `json:"group_id" db:"group_id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	AdminID        string    `json:"admin_id" db:"admin_id"`
	ChatID         *string   `json:"chat_id" db:"chat_id"`
	ProfilePicture *string   `json:"profile_picture" db:"profile_picture"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type GroupWithMembers struct {
	Group
	Members []string `json:"members"`
}

func (g *GroupWithMembers) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
