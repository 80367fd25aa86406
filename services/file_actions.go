package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// InboxFiles handles the file system side of the inbox directory: which files
// are eligible and where they go once handled.
type InboxFiles struct {
	Dir          string // absolute path of the inbox
	ProcessedDir string
	FailedDir    string
}

func NewInboxFiles(dir string) (*InboxFiles, error) {
	if dir == "" {
		return nil, fmt.Errorf("inbox directory not set")
	}
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for inbox: %w", err)
	}
	fa := &InboxFiles{
		Dir:          absPath,
		ProcessedDir: filepath.Join(absPath, "processed"),
		FailedDir:    filepath.Join(absPath, "failed"),
	}
	for _, d := range []string{fa.Dir, fa.ProcessedDir, fa.FailedDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("could not create %s: %w", d, err)
		}
	}
	return fa, nil
}

// sanitize ensures path is a PDF directly inside the inbox.
func (fa *InboxFiles) sanitize(path string) (string, error) {
	if !isSupportedFile(path) {
		return "", fmt.Errorf("file must end with .pdf")
	}
	// This prevents path traversal (e.g. "../../etc/passwd.pdf")
	cleanPath := filepath.Join(fa.Dir, filepath.Base(path))
	if filepath.Dir(cleanPath) != fa.Dir {
		return "", fmt.Errorf("invalid filename, attempts to escape inbox directory")
	}
	return cleanPath, nil
}

func (fa *InboxFiles) MarkProcessed(path string) (string, error) {
	return fa.moveTo(path, fa.ProcessedDir)
}

func (fa *InboxFiles) MarkFailed(path string) (string, error) {
	return fa.moveTo(path, fa.FailedDir)
}

func (fa *InboxFiles) moveTo(path, dir string) (string, error) {
	src, err := fa.sanitize(path)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(dir, fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405.000"), filepath.Base(src)))
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("failed to move '%s': %w", filepath.Base(src), err)
	}
	return dst, nil
}

// Newest returns the most recently modified PDF in the inbox, if any.
func (fa *InboxFiles) Newest() (string, bool, error) {
	entries, err := os.ReadDir(fa.Dir)
	if err != nil {
		return "", false, err
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !isSupportedFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(fa.Dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	return newest, newest != "", nil
}

func isSupportedFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
