package model

import (
	"path/filepath"
	"strings"
	"time"
)

// DownloadRequest is a pending download, produced by either a direct link
// message or a search-result button. Both entry points feed the same
// download routine with this value.
type DownloadRequest struct {
	RequesterID int64  // user who asked
	ChatID      int64  // chat replies go to
	ReplyToID   int    // message the status reply is attached to, 0 for none
	Link        string // literal link or canonical catalog link
	Format      Format
}

// DownloadJob is one running download-and-deliver cycle
type DownloadJob struct {
	RequesterID int64
	ScratchDir  string // exclusively owned, removed when the job ends
	Format      Format
	SourceLink  string
	StartedAt   time.Time
}

// NewDownloadJob creates a job for req rooted at scratchDir
func NewDownloadJob(req DownloadRequest, scratchDir string) *DownloadJob {
	format := req.Format
	if !format.Valid() {
		format = DefaultFormat
	}
	return &DownloadJob{
		RequesterID: req.RequesterID,
		ScratchDir:  scratchDir,
		Format:      format,
		SourceLink:  req.Link,
		StartedAt:   time.Now(),
	}
}

// HarvestedFile is an audio file found in a job's scratch directory
type HarvestedFile struct {
	Path      string
	Size      int64  // file size in bytes
	Ext       string // lower-case extension with dot, e.g. ".flac"
	Title     string // file name without extension
	Performer string // from embedded tags, may be empty
}

// Name returns the base file name
func (f HarvestedFile) Name() string {
	return filepath.Base(f.Path)
}

// TitleFromPath returns the file name of path without its extension
func TitleFromPath(path string) string {
	// Support both / and \ separators
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	if len(parts) == 0 {
		return ""
	}
	filename := parts[len(parts)-1]
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		filename = filename[:idx]
	}
	return filename
}
