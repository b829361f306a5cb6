package deck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateProject inserts a new project and returns it with its assigned ID.
func (s *Store) CreateProject(ctx context.Context, title, brief string) (*Project, error) {
	title = strings.TrimSpace(title)
	brief = strings.TrimSpace(brief)
	if title == "" {
		return nil, errors.New("deck: project title is required")
	}
	if brief == "" {
		return nil, errors.New("deck: project brief is required")
	}

	now := nowString()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (title, brief, created_at, updated_at) VALUES (?, ?, ?, ?)",
		title, brief, now, now)
	if err != nil {
		return nil, fmt.Errorf("deck: insert project: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("deck: project id: %w", err)
	}
	return &Project{
		ID:        id,
		Title:     title,
		Brief:     brief,
		CreatedAt: parseTime(now),
		UpdatedAt: parseTime(now),
	}, nil
}

// GetProject fetches a single project by ID.
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, brief, created_at, updated_at FROM projects WHERE id = ?", id)
	return scanProject(row)
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, brief, created_at, updated_at FROM projects ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("deck: list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deck: iterate projects: %w", err)
	}
	return projects, nil
}

func (s *Store) touchProject(ctx context.Context, tx *sql.Tx, projectID int64) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE projects SET updated_at = ? WHERE id = ?", nowString(), projectID); err != nil {
		return fmt.Errorf("deck: touch project %d: %w", projectID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		project          Project
		created, updated string
	)
	err := row.Scan(&project.ID, &project.Title, &project.Brief, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deck: scan project: %w", err)
	}
	project.CreatedAt = parseTime(created)
	project.UpdatedAt = parseTime(updated)
	return &project, nil
}
