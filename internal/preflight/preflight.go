// Package preflight verifies the environment before the daemon starts
// accepting work: directories, credentials, and disk headroom.
package preflight

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"deckhand/internal/config"
)

// minFreeBytes is the floor below which image generation is refused;
// generated decks routinely run to hundreds of megabytes of images.
const minFreeBytes = 500 << 20

// Result is the outcome of one check.
type Result struct {
	Name   string
	OK     bool
	Detail string
}

// Run executes all checks and reports each outcome. The second return is
// false when any check failed.
func Run(cfg *config.Config) ([]Result, bool) {
	checks := []func(*config.Config) Result{
		checkTextCredentials,
		checkImageCredentials,
		checkDataDir,
		checkImagesDir,
		checkDiskSpace,
		checkAPIBind,
	}
	results := make([]Result, 0, len(checks))
	ok := true
	for _, check := range checks {
		result := check(cfg)
		if !result.OK {
			ok = false
		}
		results = append(results, result)
	}
	return results, ok
}

func checkTextCredentials(cfg *config.Config) Result {
	if strings.TrimSpace(cfg.TextService.APIKey) == "" {
		return Result{Name: "text service credentials", Detail: "api key missing (set DECKHAND_TEXT_API_KEY)"}
	}
	return Result{Name: "text service credentials", OK: true, Detail: "configured"}
}

func checkImageCredentials(cfg *config.Config) Result {
	if strings.TrimSpace(cfg.ImageService.APIKey) == "" {
		return Result{Name: "image service credentials", Detail: "api key missing (set DECKHAND_IMAGE_API_KEY)"}
	}
	return Result{Name: "image service credentials", OK: true, Detail: "configured"}
}

func checkDataDir(cfg *config.Config) Result {
	return checkWritableDir("data directory", cfg.Paths.DataDir)
}

func checkImagesDir(cfg *config.Config) Result {
	return checkWritableDir("images directory", cfg.Paths.ImagesDir)
}

func checkWritableDir(name, dir string) Result {
	if strings.TrimSpace(dir) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	probe := filepath.Join(dir, ".deckhand-writecheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("not writable: %v", err)}
	}
	os.Remove(probe)
	return Result{Name: name, OK: true, Detail: dir}
}

func checkDiskSpace(cfg *config.Config) Result {
	dir := cfg.Paths.ImagesDir
	if strings.TrimSpace(dir) == "" {
		dir = cfg.Paths.DataDir
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return Result{Name: "disk space", Detail: fmt.Sprintf("statfs %s: %v", dir, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%.1f GiB free", float64(free)/(1<<30))
	if free < minFreeBytes {
		return Result{Name: "disk space", Detail: detail + " (below 500 MiB floor)"}
	}
	return Result{Name: "disk space", OK: true, Detail: detail}
}

func checkAPIBind(cfg *config.Config) Result {
	host, port, err := net.SplitHostPort(cfg.Paths.APIBind)
	if err != nil {
		return Result{Name: "api bind", Detail: fmt.Sprintf("invalid address %q: %v", cfg.Paths.APIBind, err)}
	}
	if port == "" {
		return Result{Name: "api bind", Detail: fmt.Sprintf("missing port in %q", cfg.Paths.APIBind)}
	}
	detail := net.JoinHostPort(host, port)
	return Result{Name: "api bind", OK: true, Detail: detail}
}
