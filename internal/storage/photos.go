package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"travelbook/internal/config"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	ErrInvalidName  = errors.New("invalid photo name")
	ErrInvalidImage = errors.New("unsupported or corrupt image")
)

var namePattern = regexp.MustCompile(`^[a-z]+_[0-9a-f-]{36}\.jpg$`)

// PhotoStore keeps resized JPEG photos under a base directory.
type PhotoStore struct {
	basePath  string
	maxWidth  int
	maxHeight int
	quality   int
}

func NewPhotoStore(cfg config.StorageConfig) (*PhotoStore, error) {
	if err := os.MkdirAll(cfg.PhotosPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photos directory: %w", err)
	}
	return &PhotoStore{
		basePath:  cfg.PhotosPath,
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
		quality:   cfg.Quality,
	}, nil
}

// SaveImage decodes data (JPEG, PNG, GIF, BMP or TIFF), fits it into the
// configured bounds and stores it as JPEG. It returns the stored file name.
func (s *PhotoStore) SaveImage(_ context.Context, prefix string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	b := img.Bounds()
	if b.Dx() > s.maxWidth || b.Dy() > s.maxHeight {
		img = imaging.Fit(img, s.maxWidth, s.maxHeight, imaging.Lanczos)
	}

	name := fmt.Sprintf("%s_%s.jpg", prefix, uuid.NewString())
	if !namePattern.MatchString(name) {
		return "", ErrInvalidName
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.quality)); err != nil {
		return "", fmt.Errorf("failed to encode photo: %w", err)
	}

	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create photo file: %w", err)
	}
	if _, err := io.Copy(tmp, &buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.basePath, name)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	return name, nil
}

// Open returns the stored photo for serving.
func (s *PhotoStore) Open(name string) (*os.File, error) {
	if !namePattern.MatchString(name) {
		return nil, ErrInvalidName
	}
	return os.Open(filepath.Join(s.basePath, name))
}

// Delete removes a stored photo. Missing files are not an error.
func (s *PhotoStore) Delete(_ context.Context, name string) error {
	if name == "" {
		return nil
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	if err := os.Remove(filepath.Join(s.basePath, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

func (s *PhotoStore) Exists(name string) bool {
	if !namePattern.MatchString(name) {
		return false
	}
	_, err := os.Stat(filepath.Join(s.basePath, name))
	return err == nil
}
