// Package blob stores opaque document payloads. Every Save produces a fresh
// key, so a key is never overwritten.
package blob

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/blake2b"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
)

// Store saves, opens and deletes payloads by key.
type Store interface {
	// Save writes r under a new key derived from originalName's extension.
	Save(ctx context.Context, r io.Reader, originalName string) (model.BlobRef, error)
	// Delete removes a payload. A missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Open returns the payload; errs.ErrNotFound when missing.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// FS keeps payloads as files in one directory.
type FS struct {
	dir string
}

var _ Store = (*FS)(nil)

// NewFS creates dir if needed and returns a store rooted there.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errs.Storage("blob mkdir", err)
	}
	return &FS{dir: dir}, nil
}

// NewKey returns "<uuid v7><ext>" for an uploaded file name.
func NewKey(originalName string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return id.String() + ext, nil
}

func (s *FS) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: bad blob key %q", errs.ErrInvalid, key)
	}
	return filepath.Join(s.dir, key), nil
}

// Save streams r into a temp file, hashing as it goes, and renames it into place.
func (s *FS) Save(ctx context.Context, r io.Reader, originalName string) (model.BlobRef, error) {
	if err := ctx.Err(); err != nil {
		return model.BlobRef{}, err
	}
	key, err := NewKey(originalName)
	if err != nil {
		return model.BlobRef{}, errs.Storage("blob key", err)
	}
	dst, err := s.path(key)
	if err != nil {
		return model.BlobRef{}, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return model.BlobRef{}, errs.Storage("blob create", err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	h, _ := blake2b.New256(nil)
	n, err := io.Copy(io.MultiWriter(tmp, h), ctxReader{ctx: ctx, r: r})
	if err != nil {
		_ = tmp.Close()
		return model.BlobRef{}, errs.Storage("blob write", err)
	}
	if err := tmp.Close(); err != nil {
		return model.BlobRef{}, errs.Storage("blob close", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return model.BlobRef{}, errs.Storage("blob rename", err)
	}
	return model.BlobRef{
		Key:      key,
		Name:     filepath.Base(originalName),
		Size:     n,
		Checksum: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Delete removes the payload; a missing file counts as deleted.
func (s *FS) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.Storage("blob delete", err)
	}
	return nil
}

// Open returns a reader over the payload.
func (s *FS) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Storage("blob open", err)
	}
	return f, nil
}

// ctxReader stops a long copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
