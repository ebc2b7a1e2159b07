// Package audio handles uploaded voice samples: temporary storage while a
// clone flow is in progress and duration probing via ffprobe.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrProbeUnavailable means no duration could be determined because the
// probe tool is missing or produced nothing usable. Callers accept the
// sample unchecked in that case; a probe that ran and rejected the file is
// a plain error instead.
var ErrProbeUnavailable = errors.New("duration probe unavailable")

// Intake stores uploaded samples in a scratch directory until the clone
// flow either commits them to the registry or abandons them.
type Intake struct {
	tempDir   string
	probeBin  string
	probeTime time.Duration
}

// NewIntake creates an intake rooted at tempDir.
func NewIntake(tempDir string) *Intake {
	return &Intake{
		tempDir:   tempDir,
		probeBin:  "ffprobe",
		probeTime: 10 * time.Second,
	}
}

// SaveSample writes uploaded bytes to a fresh temp file and returns its path.
func (in *Intake) SaveSample(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(in.tempDir, 0700); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	if ext == "" {
		ext = ".ogg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	path := filepath.Join(in.tempDir, "sample_"+uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write sample: %w", err)
	}
	return path, nil
}

// ProbeDuration returns the sample duration in seconds, or
// ErrProbeUnavailable when ffprobe cannot run or produces no duration.
func (in *Intake) ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, in.probeTime)
	defer cancel()

	out, err := exec.CommandContext(ctx, in.probeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
		}
		return 0, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparsable output %q", ErrProbeUnavailable, strings.TrimSpace(string(out)))
	}
	return seconds, nil
}

// Discard removes a buffered sample. Missing files are not an error.
func (in *Intake) Discard(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to discard sample", "path", path, "error", err)
	}
}
