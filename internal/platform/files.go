package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/rip-bot/internal/model"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Scratch directory naming: tmp_<requester_id>_<token>
const (
	ScratchPrefix    = "tmp_"
	ScratchSeparator = "_"

	// hex digits of a UUID without dashes
	scratchTokenLength = 32
)

// AudioExtensions are the file suffixes delivered to users
var AudioExtensions = []string{".flac", ".mp3"}

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// ScratchDirName returns the directory name for a job of requesterID
func ScratchDirName(requesterID int64, token string) string {
	return ScratchPrefix + strconv.FormatInt(requesterID, 10) + ScratchSeparator + token
}

// NewScratchDir creates a fresh directory under root owned by a single job.
// The name combines requesterID with a per-call unique token, and the
// directory is created with Mkdir so an existing path is an error rather
// than shared.
func NewScratchDir(root string, requesterID int64) (string, error) {
	if err := CreateDirectoryIfNotExists(root); err != nil {
		return "", fmt.Errorf("failed to prepare scratch root: %w", err)
	}
	dir := filepath.Join(root, ScratchDirName(requesterID, newScratchToken()))
	if err := os.Mkdir(dir, DefaultDirPermissions); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

// RemoveScratchDir deletes dir and everything under it. A missing directory
// is not an error.
func RemoveScratchDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove scratch directory: %w", err)
	}
	return nil
}

// IsScratchDirName reports whether name has the exact shape produced by
// ScratchDirName with a token from NewScratchDir: tmp_<int64>_<32 hex>.
func IsScratchDirName(name string) bool {
	rest, ok := strings.CutPrefix(name, ScratchPrefix)
	if !ok {
		return false
	}
	id, token, ok := strings.Cut(rest, ScratchSeparator)
	if !ok {
		return false
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return false
	}
	if len(token) != scratchTokenLength {
		return false
	}
	for _, r := range token {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// newScratchToken generates a unique token using UUID v7
func newScratchToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to a random v4 if the clock read fails
		id = uuid.New()
	}
	return strings.ReplaceAll(id.String(), "-", "")
}

// IsAudioFile reports whether name ends in a deliverable audio extension
func IsAudioFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range AudioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// WalkAudioFiles visits every audio file under root and calls fn for each.
// At every directory level regular files come first in lexicographic order,
// then subdirectories are descended in lexicographic order. Returning an
// error from fn stops the walk.
func WalkAudioFiles(root string, fn func(model.HarvestedFile) error) error {
	entries, err := os.ReadDir(root) // sorted by filename
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", root, err)
	}

	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, filepath.Join(root, entry.Name()))
			continue
		}
		if !entry.Type().IsRegular() || !IsAudioFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		path := filepath.Join(root, entry.Name())
		file := model.HarvestedFile{
			Path:  path,
			Size:  info.Size(),
			Ext:   strings.ToLower(filepath.Ext(entry.Name())),
			Title: model.TitleFromPath(path),
		}
		if err := fn(file); err != nil {
			return err
		}
	}

	for _, dir := range subdirs {
		if err := WalkAudioFiles(dir, fn); err != nil {
			return err
		}
	}
	return nil
}

// SweepScratchDirs removes scratch directories under root last modified more
// than maxAge before now. Only names matching IsScratchDirName are touched. They can only be leftovers of a process that died
// mid-job. Returns the number of directories removed.
func SweepScratchDirs(root string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scratch root %s: %w", root, err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !IsScratchDirName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := RemoveScratchDir(filepath.Join(root, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
