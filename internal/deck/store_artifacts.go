package deck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Whole-project artifacts (themes and outlines) are append-only: a save
// inserts a new row with version max+1 and readers consult only the latest.

// SaveTheme appends a new theme version for the project.
func (s *Store) SaveTheme(ctx context.Context, projectID int64, payload string) (*Artifact, error) {
	return s.saveArtifact(ctx, "themes", projectID, payload)
}

// LatestTheme returns the highest-version theme for the project.
func (s *Store) LatestTheme(ctx context.Context, projectID int64) (*Artifact, error) {
	return s.latestArtifact(ctx, "themes", projectID)
}

// SaveOutline appends a new outline version for the project.
func (s *Store) SaveOutline(ctx context.Context, projectID int64, payload string) (*Artifact, error) {
	return s.saveArtifact(ctx, "outlines", projectID, payload)
}

// LatestOutline returns the highest-version outline for the project.
func (s *Store) LatestOutline(ctx context.Context, projectID int64) (*Artifact, error) {
	return s.latestArtifact(ctx, "outlines", projectID)
}

func (s *Store) saveArtifact(ctx context.Context, table string, projectID int64, payload string) (*Artifact, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("deck: empty %s payload", strings.TrimSuffix(table, "s"))
	}
	artifact := &Artifact{ProjectID: projectID, Payload: payload}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var maxVersion sql.NullInt64
		query := fmt.Sprintf("SELECT MAX(version) FROM %s WHERE project_id = ?", table)
		if err := tx.QueryRowContext(ctx, query, projectID).Scan(&maxVersion); err != nil {
			return fmt.Errorf("deck: max %s version: %w", table, err)
		}
		artifact.Version = int(maxVersion.Int64) + 1

		now := nowString()
		insert := fmt.Sprintf(
			"INSERT INTO %s (project_id, version, payload_json, created_at) VALUES (?, ?, ?, ?)", table)
		result, err := tx.ExecContext(ctx, insert, projectID, artifact.Version, payload, now)
		if err != nil {
			return fmt.Errorf("deck: insert %s: %w", table, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("deck: %s id: %w", table, err)
		}
		artifact.ID = id
		artifact.CreatedAt = parseTime(now)
		return s.touchProject(ctx, tx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (s *Store) latestArtifact(ctx context.Context, table string, projectID int64) (*Artifact, error) {
	query := fmt.Sprintf(`
        SELECT id, project_id, version, payload_json, created_at
        FROM %s WHERE project_id = ?
        ORDER BY version DESC LIMIT 1`, table)
	var (
		artifact Artifact
		created  string
	)
	err := s.db.QueryRowContext(ctx, query, projectID).Scan(
		&artifact.ID, &artifact.ProjectID, &artifact.Version, &artifact.Payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deck: latest %s: %w", table, err)
	}
	artifact.CreatedAt = parseTime(created)
	return &artifact, nil
}
