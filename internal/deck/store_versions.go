package deck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const versionColumns = `id, slide_id, version, prompt_text, image_path, provider,
    request_json, response_json, created_at`

// NewImageVersion carries everything needed to record one generated image.
// Version is assigned by the store, never by the caller.
type NewImageVersion struct {
	SlideID      int64
	PromptText   string
	ImagePath    string
	Provider     string
	RequestJSON  string
	ResponseJSON string
}

// MaxImageVersion returns the highest version recorded for the slide, or 0
// when no image has been generated yet.
func (s *Store) MaxImageVersion(ctx context.Context, slideID int64) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(version) FROM image_versions WHERE slide_id = ?", slideID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("deck: max image version: %w", err)
	}
	return int(max.Int64), nil
}

// InsertImageVersion appends a new image version and, in the same
// transaction, marks the slide ready and clears its error. The image bytes
// must already be on disk at ImagePath: the row is durable proof that the
// file exists.
func (s *Store) InsertImageVersion(ctx context.Context, nv NewImageVersion) (*ImageVersion, error) {
	if nv.ImagePath == "" {
		return nil, errors.New("deck: image path is required")
	}
	version := &ImageVersion{
		SlideID:      nv.SlideID,
		PromptText:   nv.PromptText,
		ImagePath:    nv.ImagePath,
		Provider:     nv.Provider,
		RequestJSON:  nv.RequestJSON,
		ResponseJSON: nv.ResponseJSON,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var max sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			"SELECT MAX(version) FROM image_versions WHERE slide_id = ?",
			nv.SlideID).Scan(&max); err != nil {
			return fmt.Errorf("deck: max image version: %w", err)
		}
		version.Version = int(max.Int64) + 1

		now := nowString()
		result, err := tx.ExecContext(ctx, `
            INSERT INTO image_versions (slide_id, version, prompt_text, image_path,
                provider, request_json, response_json, created_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			nv.SlideID, version.Version, nv.PromptText, nv.ImagePath,
			nullableString(nv.Provider), nullableString(nv.RequestJSON),
			nullableString(nv.ResponseJSON), now)
		if err != nil {
			return fmt.Errorf("deck: insert image version: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("deck: image version id: %w", err)
		}
		version.ID = id
		version.CreatedAt = parseTime(now)
		return setSlideStatusTx(ctx, tx, nv.SlideID, StatusReady)
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// ListImageVersions returns a slide's image history, newest first.
func (s *Store) ListImageVersions(ctx context.Context, slideID int64) ([]*ImageVersion, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
        SELECT %s FROM image_versions WHERE slide_id = ?
        ORDER BY version DESC`, versionColumns), slideID)
	if err != nil {
		return nil, fmt.Errorf("deck: list image versions: %w", err)
	}
	defer rows.Close()

	var versions []*ImageVersion
	for rows.Next() {
		version, err := scanImageVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deck: iterate image versions: %w", err)
	}
	return versions, nil
}

// GetImageVersion fetches one specific version of a slide's image.
func (s *Store) GetImageVersion(ctx context.Context, slideID int64, version int) (*ImageVersion, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM image_versions WHERE slide_id = ? AND version = ?", versionColumns),
		slideID, version)
	return scanImageVersion(row)
}

// LatestImageVersion fetches the current image for a slide.
func (s *Store) LatestImageVersion(ctx context.Context, slideID int64) (*ImageVersion, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
        SELECT %s FROM image_versions WHERE slide_id = ?
        ORDER BY version DESC LIMIT 1`, versionColumns), slideID)
	return scanImageVersion(row)
}

func scanImageVersion(row rowScanner) (*ImageVersion, error) {
	var (
		version                     ImageVersion
		provider, request, response sql.NullString
		created                     string
	)
	err := row.Scan(&version.ID, &version.SlideID, &version.Version, &version.PromptText,
		&version.ImagePath, &provider, &request, &response, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deck: scan image version: %w", err)
	}
	version.Provider = stringOrEmpty(provider)
	version.RequestJSON = stringOrEmpty(request)
	version.ResponseJSON = stringOrEmpty(response)
	version.CreatedAt = parseTime(created)
	return &version, nil
}
