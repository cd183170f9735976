package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// MessageType tags the message body content.
type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageFile     MessageType = "file"
	MessageAudio    MessageType = "audio"
	MessageVideo    MessageType = "video"
	MessageLocation MessageType = "location"
)

// DeliveryStatus tracks how far a message has travelled.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliverySeen      DeliveryStatus = "seen"
)

// Attachment is a file attached to a message.
type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// AttachmentList is stored as a JSONB column.
type AttachmentList []Attachment

func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *AttachmentList) Scan(src any) error {
	return scanJSON(src, a)
}

// Metadata is a free-form JSONB map attached to a message.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	return scanJSON(src, m)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported jsonb source type")
	}
}

// Message is a chat message in a conversation, a group, or the legacy global
// feed. Exactly one of ConversationID/GroupID is set, or neither for global.
type Message struct {
	ID             string         `db:"id" json:"id"`
	ConversationID *string        `db:"conversation_id" json:"conversation_id,omitempty"`
	GroupID        *string        `db:"group_id" json:"group_id,omitempty"`
	SenderID       string         `db:"sender_id" json:"sender_id"`
	SenderName     string         `db:"sender_name" json:"sender_name"`
	Content        string         `db:"content" json:"content"`
	Type           MessageType    `db:"message_type" json:"message_type"`
	ReplyToID      *string        `db:"reply_to_id" json:"reply_to_id,omitempty"`
	Edited         bool           `db:"edited" json:"edited"`
	Deleted        bool           `db:"deleted" json:"deleted"`
	Forwarded      bool           `db:"forwarded" json:"forwarded"`
	Pinned         bool           `db:"pinned" json:"pinned"`
	Status         DeliveryStatus `db:"status" json:"status"`
	Attachments    AttachmentList `db:"attachments" json:"attachments,omitempty"`
	Metadata       Metadata       `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
	EditedAt       *time.Time     `db:"edited_at" json:"edited_at,omitempty"`
	DeletedAt      *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Scope returns the scope the message belongs to.
func (m Message) Scope() Scope {
	switch {
	case m.ConversationID != nil:
		return ConversationScope(*m.ConversationID)
	case m.GroupID != nil:
		return GroupScope(*m.GroupID)
	default:
		return GlobalScope()
	}
}

// SendOptions carries the optional fields of an outbound send.
type SendOptions struct {
	Type        MessageType    `json:"message_type,omitempty"`
	ReplyToID   *string        `json:"reply_to_id,omitempty"`
	Attachments AttachmentList `json:"attachments,omitempty"`
	Metadata    Metadata       `json:"metadata,omitempty"`
}
