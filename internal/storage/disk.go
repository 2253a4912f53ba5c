// Package storage persists uploaded card images on the local filesystem.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/meera/digicard/internal/domain"
)

// allowedExts is the fixed allow list of image extensions. Anything else is
// rejected with domain.ErrUnsupportedUpload rather than a fatal error.
var allowedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// DiskStore writes uploads beneath a single root directory and returns the
// generated name, which doubles as the public path segment.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

// Save stores the stream under "<prefix>_<xid><ext>", taking the extension
// from the client filename. Names never collide: xid ids are globally
// unique, so existing files are never overwritten.
func (s *DiskStore) Save(ctx context.Context, r io.Reader, prefix, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return "", domain.ErrUnsupportedUpload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s%s", prefix, xid.New().String(), ext)
	path := filepath.Join(s.root, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return name, nil
}
