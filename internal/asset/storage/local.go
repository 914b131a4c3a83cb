package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/asset"
	"github.com/google/uuid"
)

// LocalStore keeps assets as flat files in one directory. References look
// like "<prefix>/<uuid><ext>".
type LocalStore struct {
	dir    string
	prefix string
}

var _ asset.Store = (*LocalStore)(nil)

func NewLocalStore(dir, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	prefix = "/" + strings.Trim(prefix, "/")
	return &LocalStore{dir: dir, prefix: prefix}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Prefix() string {
	return s.prefix
}

func (s *LocalStore) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext, err := asset.DetectImage(data)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	p := filepath.Join(s.dir, name)

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create asset %s: %w", name, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("write asset %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("close asset %s: %w", name, err)
	}

	return path.Join(s.prefix, name), nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete asset %s: %w", ref, err)
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p, err := s.resolve(ref)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat asset %s: %w", ref, err)
	}
	return info.Mode().IsRegular(), nil
}

// ModTime reports when the file behind ref was last written. A missing file
// yields an error matching fs.ErrNotExist.
func (s *LocalStore) ModTime(ctx context.Context, ref string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	p, err := s.resolve(ref)
	if err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat asset %s: %w", ref, err)
	}
	return info.ModTime(), nil
}

func (s *LocalStore) Owns(ref string) bool {
	_, err := s.resolve(ref)
	return err == nil
}

func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	refs := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		refs = append(refs, path.Join(s.prefix, e.Name()))
	}
	sort.Strings(refs)
	return refs, nil
}

// resolve maps a reference to a file inside dir. Anything outside the prefix
// or containing path elements is rejected.
func (s *LocalStore) resolve(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, s.prefix+"/")
	if !ok || name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", asset.ErrInvalidRef, ref)
	}
	return filepath.Join(s.dir, name), nil
}
