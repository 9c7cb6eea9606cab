package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// TrackRepository persists track records fetched from the server.
//
// Rows are keyed by the server's track id. Deleted tracks are soft-deleted so a
// later fetch of the same id revives the row in place with its original sequence.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

const trackColumns = `id, sequence, title, artist, user_id, track_name, favorite, image_name, duration, bit_rate, created_at, cached_at`

// Upsert inserts track, or refreshes the cached copy (reviving it if soft-deleted).
func (r *TrackRepository) Upsert(track models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()

	result, err := r.db.Exec(`
		UPDATE tracks
		SET title = ?, artist = ?, user_id = ?, track_name = ?, favorite = ?, image_name = ?,
			duration = ?, bit_rate = ?, created_at = ?, cached_at = ?, deleted_at = NULL
		WHERE id = ?
	`,
		track.Title,
		track.Artist,
		track.UserID,
		track.TrackName,
		track.Favorite,
		nullString(track.ImageName),
		track.Duration,
		track.BitRate,
		track.CreatedAt,
		now,
		track.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO tracks (`+trackColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		track.ID,
		sequence,
		track.Title,
		track.Artist,
		track.UserID,
		track.TrackName,
		track.Favorite,
		nullString(track.ImageName),
		track.Duration,
		track.BitRate,
		track.CreatedAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.Track, error) {
	row := r.db.QueryRow(`SELECT `+trackColumns+` FROM tracks WHERE id = ? AND deleted_at IS NULL`, id)

	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return track, nil
}

// Delete soft-deletes a track by ID
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

// List retrieves all cached tracks in the order they were first cached, excluding soft-deleted tracks
func (r *TrackRepository) List() ([]models.Track, error) {
	rows, err := r.db.Query(`SELECT ` + trackColumns + ` FROM tracks WHERE deleted_at IS NULL ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Purge hard-deletes every cached track and returns how many rows were removed.
func (r *TrackRepository) Purge() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM tracks`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tracks: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(s rowScanner) (*models.Track, error) {
	var (
		track     models.Track
		sequence  int
		imageName sql.NullString
		cachedAt  time.Time
	)

	err := s.Scan(
		&track.ID,
		&sequence,
		&track.Title,
		&track.Artist,
		&track.UserID,
		&track.TrackName,
		&track.Favorite,
		&imageName,
		&track.Duration,
		&track.BitRate,
		&track.CreatedAt,
		&cachedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	if imageName.Valid {
		name := imageName.String
		track.ImageName = &name
	}

	return &track, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
