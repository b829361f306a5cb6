package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"deckhand/internal/deck"
	"deckhand/internal/fileutil"
	"deckhand/internal/services"
)

// Store pairs image bytes on disk with image_version rows in the deck
// database. Bytes always land on disk before the row commits, so a row is
// proof the file exists; the reverse is merely an orphaned file.
type Store struct {
	root string
	db   *deck.Store
}

// NewStore builds an artifact store rooted at imagesRoot.
func NewStore(imagesRoot string, db *deck.Store) (*Store, error) {
	if imagesRoot == "" {
		return nil, errors.New("artifacts: images root is required")
	}
	if db == nil {
		return nil, errors.New("artifacts: deck store is required")
	}
	if err := fileutil.EnsureDir(imagesRoot); err != nil {
		return nil, fmt.Errorf("artifacts: %w", err)
	}
	return &Store{root: imagesRoot, db: db}, nil
}

// Root returns the images root directory.
func (s *Store) Root() string {
	return s.root
}

// NextVersion returns the version number the next recorded image will get.
func (s *Store) NextVersion(ctx context.Context, slideID int64) (int, error) {
	max, err := s.db.MaxImageVersion(ctx, slideID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// Record persists one generated image for the slide: bytes to disk first,
// then the version row (which also flips the slide to ready). The target
// path is containment-checked against the images root before any write.
func (s *Store) Record(ctx context.Context, slide *deck.Slide, prompt, mimeType string, imageBytes []byte, rawRequest, rawResponse string) (*deck.ImageVersion, error) {
	if slide == nil {
		return nil, errors.New("artifacts: slide is required")
	}
	if len(imageBytes) == 0 {
		return nil, services.Wrap(services.ErrValidation, "artifacts", "record",
			"refusing to record empty image", nil)
	}
	version, err := s.NextVersion(ctx, slide.ID)
	if err != nil {
		return nil, err
	}
	path, err := s.versionPath(slide.ProjectID, slide.ID, version, mimeType)
	if err != nil {
		return nil, err
	}
	if err := fileutil.WriteFile(path, imageBytes); err != nil {
		return nil, fmt.Errorf("artifacts: write image: %w", err)
	}
	return s.db.InsertImageVersion(ctx, deck.NewImageVersion{
		SlideID:      slide.ID,
		PromptText:   prompt,
		ImagePath:    path,
		Provider:     "gemini",
		RequestJSON:  rawRequest,
		ResponseJSON: rawResponse,
	})
}

// Restore makes an older version current by copying its bytes and prompt
// into a brand-new highest version. History is append-only: nothing is
// rewound or deleted, and the restored row carries no request/response
// provenance because no service call produced it.
func (s *Store) Restore(ctx context.Context, slideID int64, version int) (*deck.ImageVersion, error) {
	target, err := s.db.GetImageVersion(ctx, slideID, version)
	if err != nil {
		return nil, err
	}
	slide, err := s.db.GetSlide(ctx, slideID)
	if err != nil {
		return nil, err
	}
	if _, err := fileutil.EnsureWithin(s.root, target.ImagePath); err != nil {
		return nil, fmt.Errorf("artifacts: restore source: %w", err)
	}

	next, err := s.NextVersion(ctx, slideID)
	if err != nil {
		return nil, err
	}
	path, err := s.versionPath(slide.ProjectID, slideID, next, mimeTypeForPath(target.ImagePath))
	if err != nil {
		return nil, err
	}
	if err := fileutil.CopyFile(target.ImagePath, path); err != nil {
		return nil, fmt.Errorf("artifacts: copy image: %w", err)
	}
	return s.db.InsertImageVersion(ctx, deck.NewImageVersion{
		SlideID:    slideID,
		PromptText: target.PromptText,
		ImagePath:  path,
		Provider:   target.Provider,
	})
}

// ListVersions returns the slide's image history, newest first.
func (s *Store) ListVersions(ctx context.Context, slideID int64) ([]*deck.ImageVersion, error) {
	return s.db.ListImageVersions(ctx, slideID)
}

// Open returns a reader for a recorded image, containment-checked.
func (s *Store) Open(version *deck.ImageVersion) (*os.File, error) {
	path, err := fileutil.EnsureWithin(s.root, version.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("artifacts: %w", err)
	}
	return os.Open(path)
}

func (s *Store) versionPath(projectID, slideID int64, version int, mimeType string) (string, error) {
	name := fmt.Sprintf("slide_%d_v%d.%s", slideID, version, extensionFor(mimeType))
	relative := filepath.Join(fmt.Sprintf("project_%d", projectID), name)
	path, err := fileutil.EnsureWithin(s.root, relative)
	if err != nil {
		return "", fmt.Errorf("artifacts: %w", err)
	}
	return path, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

func mimeTypeForPath(path string) string {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
