package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultThumbnailSize is the edge, in pixels, of requested note thumbnails.
const DefaultThumbnailSize = 300

// ThumbnailSink receives downloaded note thumbnails.
type ThumbnailSink interface {
	PutThumbnail(ctx context.Context, noteGuid string, png []byte) error
}

type dirThumbnailSink struct {
	dir string
}

// NewDirThumbnailSink stores thumbnails as <dir>/<note guid>.png.
func NewDirThumbnailSink(dir string) (ThumbnailSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("thumbnail directory is not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail directory: %w", err)
	}
	return &dirThumbnailSink{dir: dir}, nil
}

func (s *dirThumbnailSink) PutThumbnail(ctx context.Context, noteGuid string, png []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if noteGuid == "" || strings.ContainsAny(noteGuid, `/\`) || noteGuid == "." || noteGuid == ".." {
		return fmt.Errorf("invalid note guid %q for thumbnail", noteGuid)
	}

	path := filepath.Join(s.dir, noteGuid+".png")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, png, 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	return nil
}
