package models

import "time"

const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// MaxMessageLength bounds message content before encryption.
const MaxMessageLength = 5000

type Message struct {
	MessageID   string    `json:"message_id" db:"message_id"`
	ChatID      string    `json:"chat_id" db:"chat_id"`
	SenderID    string    `json:"sender_id" db:"sender_id"`
	Content     string    `json:"content" db:"content"`
	MsgType     string    `json:"type" db:"msg_type"`
	FileURL     *string   `json:"file_url" db:"file_url"`
	FileName    *string   `json:"file_name" db:"file_name"`
	FileSize    *int64    `json:"file_size" db:"file_size"`
	FileType    *string   `json:"file_type" db:"file_type"`
	IsEncrypted bool      `json:"is_encrypted" db:"is_encrypted"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// FileMeta describes a stored attachment as returned by the blob store.
type FileMeta struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
}

// MessageView is the delivery-ready projection of a message: content is
// plaintext and the sender carries display info only.
type MessageView struct {
	MessageID string    `json:"message_id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	MsgType   string    `json:"type"`
	FileURL   *string   `json:"file_url,omitempty"`
	FileName  *string   `json:"file_name,omitempty"`
	FileSize  *int64    `json:"file_size,omitempty"`
	FileType  *string   `json:"file_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Sender    Sender    `json:"sender"`
}

type ReadMarker struct {
	MessageID string    `json:"message_id" db:"message_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ReadAt    time.Time `json:"read_at" db:"read_at"`
}
