package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"chat-sync/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

const profileColumns = `id, user_id, username, display_name, avatar_url, bio, phone,
    status, custom_status, last_seen, is_online, show_last_seen, show_status,
    created_at, updated_at`

// ProfileRepository persists user profiles and their declared presence status.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (models.UserProfile, error)
	UpsertProfile(ctx context.Context, profile models.UserProfile) (models.UserProfile, error)
	SetOnlineStatus(ctx context.Context, userID string, status models.PresenceStatus) error
}

// ProfileRepo is a sqlx-backed ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetProfile fetches a profile by user id.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.GetContext(ctx, &profile, `SELECT `+profileColumns+` FROM user_profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, ErrProfileNotFound
	}
	return profile, err
}

// UpsertProfile creates or refreshes the identity fields of a profile.
func (r *ProfileRepo) UpsertProfile(ctx context.Context, profile models.UserProfile) (models.UserProfile, error) {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	var stored models.UserProfile
	err := r.db.QueryRowxContext(ctx, `INSERT INTO user_profiles
        (id, user_id, username, display_name, avatar_url, bio, phone, status, custom_status,
         show_last_seen, show_status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (user_id) DO UPDATE SET
            username = EXCLUDED.username,
            display_name = EXCLUDED.display_name,
            avatar_url = EXCLUDED.avatar_url,
            bio = EXCLUDED.bio,
            phone = EXCLUDED.phone,
            custom_status = EXCLUDED.custom_status,
            show_last_seen = EXCLUDED.show_last_seen,
            show_status = EXCLUDED.show_status,
            updated_at = NOW()
        RETURNING `+profileColumns,
		profile.ID, profile.UserID, profile.Username, profile.DisplayName, profile.AvatarURL,
		profile.Bio, profile.Phone, profile.Status, profile.CustomStatus,
		profile.ShowLastSeen, profile.ShowStatus).
		StructScan(&stored)
	return stored, err
}

// SetOnlineStatus is the one-shot presence registration call.
func (r *ProfileRepo) SetOnlineStatus(ctx context.Context, userID string, status models.PresenceStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE user_profiles
        SET status=$2, is_online=$3, last_seen=$4, updated_at=$4
        WHERE user_id=$1`, userID, status, status == models.StatusOnline, time.Now().UTC())
	return err
}
