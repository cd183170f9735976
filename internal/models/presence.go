package models

import "time"

// PresenceStatus is a user's declared availability.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
)

// UserProfile is the identity and presence snapshot of a user. Presence
// fields are populated from presence-channel syncs and are advisory only;
// they may lag or miss entries while the channel reconnects.
type UserProfile struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Username     string         `db:"username" json:"username,omitempty"`
	DisplayName  string         `db:"display_name" json:"display_name,omitempty"`
	AvatarURL    string         `db:"avatar_url" json:"avatar_url,omitempty"`
	Bio          string         `db:"bio" json:"bio,omitempty"`
	Phone        string         `db:"phone" json:"phone,omitempty"`
	Status       PresenceStatus `db:"status" json:"status"`
	CustomStatus string         `db:"custom_status" json:"custom_status,omitempty"`
	LastSeen     *time.Time     `db:"last_seen" json:"last_seen,omitempty"`
	IsOnline     bool           `db:"is_online" json:"is_online"`
	ShowLastSeen bool           `db:"show_last_seen" json:"show_last_seen"`
	ShowStatus   bool           `db:"show_status" json:"show_status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Name returns the best display label for the user.
func (p UserProfile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return p.UserID
}
