package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sparkmatch/backend/internal/db"
	"github.com/sparkmatch/backend/internal/models"
)

// PostgresProfileRepository provides PostgreSQL-backed persistence for profile
// documents keyed by account identifier.
type PostgresProfileRepository struct {
	pool db.Pool
}

// NewPostgresProfileRepository constructs a profile repository backed by PostgreSQL.
func NewPostgresProfileRepository(pool db.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

// Get fetches the profile document for the provided account identifier.
func (r *PostgresProfileRepository) Get(ctx context.Context, uid string) (models.UserProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT uid, email, first_name, birth_date, profile_image,
               screen_recording, screen_recording_thumbnail,
               screen_recording_file_name, screen_recording_uploaded_at
        FROM profiles
        WHERE uid = $1
    `, uid)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserProfile{}, ErrNotFound
		}
		return models.UserProfile{}, fmt.Errorf("select profile: %w", err)
	}

	return profile, nil
}

// List returns every profile document in one unordered batch.
func (r *PostgresProfileRepository) List(ctx context.Context) ([]models.UserProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT uid, email, first_name, birth_date, profile_image,
               screen_recording, screen_recording_thumbnail,
               screen_recording_file_name, screen_recording_uploaded_at
        FROM profiles
    `)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.UserProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}

// Merge applies a non-destructive partial write: nil patch fields preserve the
// stored value, and a missing document is created containing exactly the
// supplied fields.
func (r *PostgresProfileRepository) Merge(ctx context.Context, uid string, patch models.ProfilePatch) error {
	if uid == "" {
		return errors.New("profile uid is required")
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO profiles (
            uid, email, first_name, birth_date, profile_image,
            screen_recording, screen_recording_thumbnail,
            screen_recording_file_name, screen_recording_uploaded_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (uid) DO UPDATE SET
            email                        = COALESCE(EXCLUDED.email, profiles.email),
            first_name                   = COALESCE(EXCLUDED.first_name, profiles.first_name),
            birth_date                   = COALESCE(EXCLUDED.birth_date, profiles.birth_date),
            profile_image                = COALESCE(EXCLUDED.profile_image, profiles.profile_image),
            screen_recording             = COALESCE(EXCLUDED.screen_recording, profiles.screen_recording),
            screen_recording_thumbnail   = COALESCE(EXCLUDED.screen_recording_thumbnail, profiles.screen_recording_thumbnail),
            screen_recording_file_name   = COALESCE(EXCLUDED.screen_recording_file_name, profiles.screen_recording_file_name),
            screen_recording_uploaded_at = COALESCE(EXCLUDED.screen_recording_uploaded_at, profiles.screen_recording_uploaded_at)
    `, uid, patch.Email, patch.FirstName, patch.BirthDate, patch.ProfileImage,
		patch.ScreenRecording, patch.ScreenRecordingThumbnail,
		patch.ScreenRecordingFileName, patch.ScreenRecordingUploadedAt)
	if err != nil {
		return fmt.Errorf("merge profile: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (models.UserProfile, error) {
	var (
		profile    models.UserProfile
		email      sql.NullString
		firstName  sql.NullString
		birthDate  sql.NullString
		image      sql.NullString
		recording  sql.NullString
		thumbnail  sql.NullString
		fileName   sql.NullString
		uploadedAt sql.NullTime
	)

	if err := row.Scan(&profile.ID, &email, &firstName, &birthDate, &image,
		&recording, &thumbnail, &fileName, &uploadedAt); err != nil {
		return models.UserProfile{}, err
	}

	profile.Email = email.String
	profile.FirstName = firstName.String
	profile.BirthDate = birthDate.String
	profile.ProfileImage = image.String
	profile.ScreenRecording = recording.String
	profile.ScreenRecordingThumbnail = thumbnail.String
	profile.ScreenRecordingFileName = fileName.String
	if uploadedAt.Valid {
		t := uploadedAt.Time.UTC()
		profile.ScreenRecordingUploadedAt = &t
	}

	return profile, nil
}
