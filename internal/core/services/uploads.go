package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure UploadStore implements the interface.
var _ driving.UploadService = (*UploadStore)(nil)

// UploadStore validates uploads and writes them under
// {dir}/{session}/{batch}/, so a rejected or concurrent upload never
// overwrites files a running job is reading.
type UploadStore struct {
	settings domain.UploadSettings
}

// NewUploadStore creates an upload store.
func NewUploadStore(settings domain.UploadSettings) *UploadStore {
	return &UploadStore{settings: settings}
}

// Validate checks count, extension and declared sizes before anything is
// written.
func (u *UploadStore) Validate(files []domain.IncomingFile) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: no documents provided", domain.ErrInvalidInput)
	}
	if len(files) > u.settings.MaxFiles {
		return fmt.Errorf("%w: maximum %d files allowed", domain.ErrTooManyFiles, u.settings.MaxFiles)
	}

	var total int64
	for _, f := range files {
		if !u.settings.Allowed(f.Name) {
			return fmt.Errorf("%w: %s, allowed types: %s",
				domain.ErrUnsupportedType, f.Name, strings.Join(u.settings.AllowedExtensions, ", "))
		}
		if f.Size == 0 {
			return fmt.Errorf("%w: %s", domain.ErrEmptyFile, f.Name)
		}
		if f.Size > u.settings.MaxFileSize {
			return fmt.Errorf("%w: %s, maximum size is %s", domain.ErrFileTooLarge, f.Name, humanBytes(u.settings.MaxFileSize))
		}
		total += f.Size
		if total > u.settings.MaxTotalSize {
			return fmt.Errorf("%w: maximum %s", domain.ErrUploadTooLarge, humanBytes(u.settings.MaxTotalSize))
		}
	}
	return nil
}

// Save validates files and writes them for sessionID. On any failure the
// files written so far are removed.
func (u *UploadStore) Save(sessionID string, files []domain.IncomingFile) ([]domain.UploadedFile, error) {
	if err := u.Validate(files); err != nil {
		return nil, err
	}

	dir := filepath.Join(u.settings.Dir, SecureFilename(sessionID), NewQueryID())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	saved := make([]domain.UploadedFile, 0, len(files))
	used := make(map[string]bool, len(files))
	var total int64
	fail := func(err error) ([]domain.UploadedFile, error) {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	for _, f := range files {
		name := uniqueName(SecureFilename(f.Name), used)
		path := filepath.Join(dir, name)
		n, err := u.write(path, f.Content)
		if err != nil {
			if errors.Is(err, domain.ErrFileTooLarge) || errors.Is(err, domain.ErrEmptyFile) {
				return fail(fmt.Errorf("%w: %s", err, f.Name))
			}
			logger.Error("Error saving file %s: %v", name, err)
			return fail(fmt.Errorf("failed to save file %s: %w", f.Name, err))
		}
		total += n
		saved = append(saved, domain.UploadedFile{Filename: f.Name, Path: path, Size: n})
		if total > u.settings.MaxTotalSize {
			return fail(fmt.Errorf("%w: maximum %s", domain.ErrUploadTooLarge, humanBytes(u.settings.MaxTotalSize)))
		}
		logger.Info("Saved file: %s (%d bytes)", name, n)
	}
	return saved, nil
}

// write copies at most MaxFileSize+1 bytes so an understated Size is caught.
func (u *UploadStore) write(path string, r io.Reader) (int64, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, io.LimitReader(r, u.settings.MaxFileSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		return n, err
	case n == 0:
		return n, domain.ErrEmptyFile
	case n > u.settings.MaxFileSize:
		return n, domain.ErrFileTooLarge
	}
	return n, nil
}

// Discard removes stored files that were never handed to processing,
// together with their batch directories once empty.
func (u *UploadStore) Discard(files []domain.UploadedFile) {
	removeFiles(domain.UploadedPaths(files))
}

// SecureFilename reduces name to a safe base name: ASCII letters, digits,
// dot, dash and underscore, with whitespace turned into underscores and
// leading dots dropped.
func SecureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), "._")
	if out == "" {
		return "upload"
	}
	return out
}

func uniqueName(name string, used map[string]bool) string {
	candidate := name
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; used[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func humanBytes(n int64) string {
	const unit = 1024
	switch {
	case n >= unit*unit:
		return fmt.Sprintf("%.1fMB", float64(n)/(unit*unit))
	case n >= unit:
		return fmt.Sprintf("%dKB", n/unit)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
