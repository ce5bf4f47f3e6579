package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidtweet/backend/internal/logging"
)

// BlobStore uploads local files and returns their durable URL.
type BlobStore interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// DurationProber reads the duration of a local video file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Uploads stages multipart files on local disk and hands them to blob storage.
// Staged files are removed whether or not the upload succeeds.
type Uploads struct {
	dir    string
	blobs  BlobStore
	prober DurationProber
}

// NewUploads stages files under dir.
func NewUploads(dir string, blobs BlobStore, prober DurationProber) *Uploads {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	return &Uploads{dir: dir, blobs: blobs, prober: prober}
}

// Store uploads fh and returns its URL. A nil header is ErrMissingFile.
func (u *Uploads) Store(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	path, err := u.stage(fh)
	if err != nil {
		return "", err
	}
	defer u.discard(ctx, path)

	return u.blobs.Upload(ctx, path)
}

// StoreVideo reads the duration of fh and uploads it.
func (u *Uploads) StoreVideo(ctx context.Context, fh *multipart.FileHeader) (string, float64, error) {
	path, err := u.stage(fh)
	if err != nil {
		return "", 0, err
	}
	defer u.discard(ctx, path)

	duration, err := u.prober.Duration(ctx, path)
	if err != nil {
		return "", 0, err
	}

	url, err := u.blobs.Upload(ctx, path)
	if err != nil {
		return "", 0, err
	}
	return url, duration, nil
}

func (u *Uploads) stage(fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Size == 0 {
		return "", ErrMissingFile
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.CreateTemp(u.dir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("stage upload %s: %w", fh.Filename, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("close staging file: %w", err)
	}
	return dst.Name(), nil
}

func (u *Uploads) discard(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.FromContext(ctx).Warn("remove staged upload", slog.String("path", path), slog.Any("error", err))
	}
}
