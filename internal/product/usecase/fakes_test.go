package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fekuna/omnipos-catalog-service/internal/asset"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/google/uuid"
)

type memRepo struct {
	mu        sync.Mutex
	rows      map[string]model.Product
	insertErr error
	updateErr error
	deleteErr error
	inserts   int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]model.Product{}}
}

func (r *memRepo) Insert(_ context.Context, f model.ProductFields) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	r.inserts++
	p := model.Product{
		BaseModel:  model.BaseModel{ID: uuid.NewString()},
		Name:       f.Name,
		Brand:      f.Brand,
		Categories: f.Categories,
		Price:      f.Price,
		Image:      f.Image,
		Version:    1,
	}
	r.rows[p.ID] = p
	return &p, nil
}

func (r *memRepo) FindAll(_ context.Context) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Product, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (r *memRepo) Update(_ context.Context, id string, f model.ProductFields) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	p, ok := r.rows[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p.Name, p.Brand, p.Categories, p.Price, p.Image = f.Name, f.Brand, f.Categories, f.Price, f.Image
	p.Version++
	r.rows[id] = p
	return &p, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.rows[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) ListImageRefs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs := []string{}
	for _, p := range r.rows {
		refs = append(refs, p.Image)
	}
	return refs, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *memRepo) put(p model.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = p
}

type memStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	storeErr  error
	deleteErr error
	deletes   []string
	onDelete  func(ref string)
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

const memPrefix = "/uploads/"

func (s *memStore) Store(_ context.Context, data []byte, _ string) (string, error) {
	if s.storeErr != nil {
		return "", s.storeErr
	}
	ext, err := asset.DetectImage(data)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := memPrefix + uuid.NewString() + ext
	s.files[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (s *memStore) Delete(_ context.Context, ref string) error {
	if s.onDelete != nil {
		s.onDelete(ref)
	}
	if !s.Owns(ref) {
		return fmt.Errorf("%w: %q", asset.ErrInvalidRef, ref)
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, ref)
	delete(s.files, ref)
	return nil
}

func (s *memStore) Exists(_ context.Context, ref string) (bool, error) {
	if !s.Owns(ref) {
		return false, asset.ErrInvalidRef
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[ref]
	return ok, nil
}

func (s *memStore) Owns(ref string) bool {
	return strings.HasPrefix(ref, memPrefix) && len(ref) > len(memPrefix)
}

func (s *memStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]string, 0, len(s.files))
	for ref := range s.files {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs, nil
}

func (s *memStore) content(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[ref]
	return b, ok
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

var errDisk = errors.New("disk on fire")
