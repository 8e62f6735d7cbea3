// File: internal/usecase/validator.go
package usecase

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
)

var extensionCategory = map[string]model.FileCategory{
	".mp3":  model.FileAudio,
	".wav":  model.FileAudio,
	".m4a":  model.FileAudio,
	".flac": model.FileAudio,
	".ogg":  model.FileAudio,

	".mp4":  model.FileVideo,
	".mkv":  model.FileVideo,
	".avi":  model.FileVideo,
	".mov":  model.FileVideo,
	".webm": model.FileVideo,

	".txt":  model.FileText,
	".md":   model.FileText,
	".text": model.FileText,
}

// Classify maps a path to its media category by extension alone.
func Classify(path string) model.FileCategory {
	if c, ok := extensionCategory[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return model.FileUnknown
}

// FileValidator checks input files before any job is created. It never
// modifies the filesystem.
type FileValidator struct {
	maxSize int64
}

func NewFileValidator(maxSize int64) *FileValidator {
	return &FileValidator{maxSize: maxSize}
}

// Validate returns nil or a *domain.Error of kind not_found, invalid_type,
// unsupported_format, too_large or permission_denied, checked in that order.
func (v *FileValidator) Validate(path string) error {
	info, err := statFile(path)
	if err != nil {
		return err
	}
	if Classify(path) == model.FileUnknown {
		return domain.Errorf(domain.KindUnsupportedFormat, "Unsupported file type: %s", filepath.Ext(path))
	}
	if v.maxSize > 0 && info.Size() > v.maxSize {
		return domain.Errorf(domain.KindTooLarge, "File too large: %.1fMB (max: %.1fMB)",
			float64(info.Size())/(1<<20), float64(v.maxSize)/(1<<20))
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return domain.Wrap(domain.KindPermissionDenied, err, "Cannot read file: %s", path)
		}
		return domain.Wrap(domain.KindPermissionDenied, err, "Cannot open file: %s", path)
	}
	return f.Close()
}

// ValidateMedia is Validate restricted to audio and video files.
func (v *FileValidator) ValidateMedia(path string) error {
	if err := v.Validate(path); err != nil {
		return err
	}
	switch Classify(path) {
	case model.FileAudio, model.FileVideo:
		return nil
	}
	return domain.Errorf(domain.KindUnsupportedFormat, "Not an audio or video file: %s", filepath.Base(path))
}

// RequireFile only checks that path names an existing regular file. Stage
// inputs produced by earlier stages go through this instead of Validate.
func RequireFile(path string) error {
	_, err := statFile(path)
	return err
}

func statFile(path string) (fs.FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, domain.Errorf(domain.KindInvalidArgument, "File path is required")
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, domain.Errorf(domain.KindNotFound, "File not found: %s", path)
	case errors.Is(err, fs.ErrPermission):
		return nil, domain.Wrap(domain.KindPermissionDenied, err, "Cannot read file: %s", path)
	case err != nil:
		return nil, domain.Wrap(domain.KindInvalidType, err, "Cannot stat file: %s", path)
	}
	if !info.Mode().IsRegular() {
		return nil, domain.Errorf(domain.KindInvalidType, "Not a file: %s", path)
	}
	return info, nil
}
