package daemon

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"deckhand/internal/fileutil"
)

// acquireLock takes the daemon's exclusive file lock under the data
// directory, refusing to start when another instance holds it.
func acquireLock(dataDir string) (*flock.Flock, error) {
	if err := fileutil.EnsureDir(dataDir); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dataDir, "deckhandd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another deckhandd instance already holds %s", lock.Path())
	}
	return lock, nil
}
