package deck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const slideColumns = `id, project_id, section_index, slide_index, title, summary,
    content_json, status, error_message, created_at, updated_at`

// NewSlide describes one positional slide derived from an outline.
type NewSlide struct {
	SectionIndex int
	SlideIndex   int
	Title        string
	Summary      string
}

// ReplaceSlides deletes the project's existing slides (cascading their image
// versions) and inserts the given set as pending, all in one transaction.
func (s *Store) ReplaceSlides(ctx context.Context, projectID int64, slides []NewSlide) ([]*Slide, error) {
	if len(slides) == 0 {
		return nil, errors.New("deck: refusing to replace slides with empty set")
	}
	inserted := make([]*Slide, 0, len(slides))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM slides WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("deck: delete slides: %w", err)
		}
		now := nowString()
		for _, ns := range slides {
			result, err := tx.ExecContext(ctx, `
                INSERT INTO slides (project_id, section_index, slide_index, title,
                    summary, status, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				projectID, ns.SectionIndex, ns.SlideIndex, ns.Title,
				nullableString(ns.Summary), string(StatusPending), now, now)
			if err != nil {
				return fmt.Errorf("deck: insert slide %d/%d: %w", ns.SectionIndex, ns.SlideIndex, err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("deck: slide id: %w", err)
			}
			inserted = append(inserted, &Slide{
				ID:           id,
				ProjectID:    projectID,
				SectionIndex: ns.SectionIndex,
				SlideIndex:   ns.SlideIndex,
				Title:        ns.Title,
				Summary:      ns.Summary,
				Status:       StatusPending,
				CreatedAt:    parseTime(now),
				UpdatedAt:    parseTime(now),
			})
		}
		return s.touchProject(ctx, tx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// ListSlides returns the project's slides in deck order.
func (s *Store) ListSlides(ctx context.Context, projectID int64) ([]*Slide, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
        SELECT %s FROM slides WHERE project_id = ?
        ORDER BY section_index, slide_index`, slideColumns), projectID)
	if err != nil {
		return nil, fmt.Errorf("deck: list slides: %w", err)
	}
	defer rows.Close()

	var slides []*Slide
	for rows.Next() {
		slide, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		slides = append(slides, slide)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deck: iterate slides: %w", err)
	}
	return slides, nil
}

// GetSlide fetches a single slide by ID.
func (s *Store) GetSlide(ctx context.Context, id int64) (*Slide, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM slides WHERE id = ?", slideColumns), id)
	return scanSlide(row)
}

// TransitionSlide moves a slide to the given status, validating the change
// against the lifecycle inside the transaction. A slide currently
// generating_image yields ErrSlideBusy; any other forbidden change yields
// ErrInvalidTransition.
func (s *Store) TransitionSlide(ctx context.Context, id int64, to SlideStatus) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		from, err := slideStatusTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanTransition(from, to) {
			if from == StatusGeneratingImage {
				return fmt.Errorf("%w: slide %d", ErrSlideBusy, id)
			}
			return fmt.Errorf("%w: slide %d %s -> %s", ErrInvalidTransition, id, from, to)
		}
		return setSlideStatusTx(ctx, tx, id, to)
	})
}

// UpdateSlideContent stores freshly generated content and moves the slide to
// text_ready, clearing any prior error.
func (s *Store) UpdateSlideContent(ctx context.Context, id int64, contentJSON string) error {
	if strings.TrimSpace(contentJSON) == "" {
		return errors.New("deck: empty slide content")
	}
	return s.execOnSlide(ctx, id, `
        UPDATE slides SET content_json = ?, status = ?, error_message = NULL,
            updated_at = ? WHERE id = ?`,
		contentJSON, string(StatusTextReady), nowString(), id)
}

// EditSlideContent replaces a slide's content out of band. Whatever state the
// slide was in, it returns to text_ready so the image stage can pick it up.
func (s *Store) EditSlideContent(ctx context.Context, id int64, contentJSON string) error {
	return s.UpdateSlideContent(ctx, id, contentJSON)
}

// MarkSlideError records a failure message and moves the slide to error.
func (s *Store) MarkSlideError(ctx context.Context, id int64, message string) error {
	return s.execOnSlide(ctx, id, `
        UPDATE slides SET status = ?, error_message = ?, updated_at = ?
        WHERE id = ?`,
		string(StatusError), nullableString(message), nowString(), id)
}

func (s *Store) execOnSlide(ctx context.Context, id int64, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deck: update slide %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deck: update slide %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: slide %d", ErrNotFound, id)
	}
	return nil
}

func slideStatusTx(ctx context.Context, tx *sql.Tx, id int64) (SlideStatus, error) {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT status FROM slides WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: slide %d", ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("deck: slide %d status: %w", id, err)
	}
	status, ok := ParseSlideStatus(raw)
	if !ok {
		return "", fmt.Errorf("deck: slide %d has unknown status %q", id, raw)
	}
	return status, nil
}

func setSlideStatusTx(ctx context.Context, tx *sql.Tx, id int64, to SlideStatus) error {
	clearError := ""
	if to != StatusError {
		clearError = ", error_message = NULL"
	}
	query := fmt.Sprintf(
		"UPDATE slides SET status = ?%s, updated_at = ? WHERE id = ?", clearError)
	if _, err := tx.ExecContext(ctx, query, string(to), nowString(), id); err != nil {
		return fmt.Errorf("deck: set slide %d status: %w", id, err)
	}
	return nil
}

func scanSlide(row rowScanner) (*Slide, error) {
	var (
		slide            Slide
		summary          sql.NullString
		content          sql.NullString
		errMsg           sql.NullString
		status           string
		created, updated string
	)
	err := row.Scan(&slide.ID, &slide.ProjectID, &slide.SectionIndex, &slide.SlideIndex,
		&slide.Title, &summary, &content, &status, &errMsg, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deck: scan slide: %w", err)
	}
	slide.Summary = stringOrEmpty(summary)
	slide.ContentJSON = stringOrEmpty(content)
	slide.ErrorMessage = stringOrEmpty(errMsg)
	parsed, ok := ParseSlideStatus(status)
	if !ok {
		return nil, fmt.Errorf("deck: slide %d has unknown status %q", slide.ID, status)
	}
	slide.Status = parsed
	slide.CreatedAt = parseTime(created)
	slide.UpdatedAt = parseTime(updated)
	return &slide, nil
}
