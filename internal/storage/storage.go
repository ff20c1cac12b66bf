// Package storage keeps the image assets referenced by destinations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path"
	"path/filepath"
	"strings"
	"time"

	"tripcatalog/internal/models"
)

const (
	MaxFileSize   = 5 << 20 // 5 MiB
	MaxBatchFiles = 5
	DefaultPrefix = "/uploads"
)

// ErrTooLarge is wrapped together with ErrUploadRejected for oversize files.
var ErrTooLarge = errors.New("file exceeds the 5 MiB limit")

// allowedExt maps each accepted extension to the image family it belongs to.
var allowedExt = map[string]string{
	".jpeg": "jpeg",
	".jpg":  "jpeg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
}

var allowedMime = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// File is one upload as declared by the client.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// AssetStore persists uploaded images and hands back references that the
// HTTP layer serves under a fixed public prefix.
type AssetStore interface {
	Store(ctx context.Context, f File) (string, error)
	// Delete is idempotent: removing an absent asset is not an error.
	Delete(ctx context.Context, ref string) error
	Exists(ctx context.Context, ref string) (bool, error)
}

// ValidateFile applies the type and size rules without touching the store.
func ValidateFile(f File) error {
	ext := strings.ToLower(filepath.Ext(f.Name))
	extFamily, okExt := allowedExt[ext]

	mimeType := strings.ToLower(strings.TrimSpace(strings.Split(f.ContentType, ";")[0]))
	mimeFamily, okMime := allowedMime[mimeType]

	if !okExt || !okMime {
		return fmt.Errorf("%w: only image files are allowed (%q, %q)", models.ErrUploadRejected, f.Name, f.ContentType)
	}
	if extFamily != mimeFamily {
		return fmt.Errorf("%w: extension %s does not match content type %s", models.ErrUploadRejected, ext, mimeType)
	}
	if f.Size > MaxFileSize {
		return fmt.Errorf("%w: %s: %w", models.ErrUploadRejected, f.Name, ErrTooLarge)
	}
	if f.Content == nil {
		return fmt.Errorf("%w: %s has no content", models.ErrUploadRejected, f.Name)
	}
	return nil
}

// StoreBatch validates every file first and then stores them in order.
// If a write fails part way, files already written by this call are removed.
func StoreBatch(ctx context.Context, store AssetStore, files []File) ([]string, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", models.ErrUploadRejected)
	}
	if len(files) > MaxBatchFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload, got %d", models.ErrUploadRejected, MaxBatchFiles, len(files))
	}
	for _, f := range files {
		if err := ValidateFile(f); err != nil {
			return nil, err
		}
	}

	refs := make([]string, 0, len(files))
	for _, f := range files {
		ref, err := store.Store(ctx, f)
		if err != nil {
			for _, written := range refs {
				_ = store.Delete(context.WithoutCancel(ctx), written)
			}
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// newName builds "destination-<millis>-<9 random digits><ext>".
func newName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("destination-%d-%09d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}

// refName extracts the stored file name from a reference under prefix.
// It rejects anything that is not a single plain path element.
func refName(prefix, ref string) (string, error) {
	trimmed := strings.TrimPrefix(ref, strings.TrimSuffix(prefix, "/")+"/")
	if trimmed == ref && strings.Contains(ref, "/") {
		return "", fmt.Errorf("reference %q is outside %s", ref, prefix)
	}
	if trimmed == "" || trimmed != path.Base(trimmed) || trimmed == "." || trimmed == ".." || strings.Contains(trimmed, `\`) {
		return "", fmt.Errorf("invalid asset reference %q", ref)
	}
	return trimmed, nil
}

func joinRef(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

// limitedCopy copies at most MaxFileSize bytes and fails if src holds more.
// ctx is checked between chunks so a cancelled request stops the write.
func limitedCopy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	r := &ctxReader{ctx: ctx, r: io.LimitReader(src, MaxFileSize+1)}
	n, err := io.Copy(dst, r)
	if err != nil {
		return n, err
	}
	if n > MaxFileSize {
		return n, fmt.Errorf("%w: %w", models.ErrUploadRejected, ErrTooLarge)
	}
	if n == 0 {
		return n, fmt.Errorf("%w: file is empty", models.ErrUploadRejected)
	}
	return n, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
