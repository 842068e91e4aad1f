package docgen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrTemplateMissing is returned by a TemplateStore when a name does not exist
var ErrTemplateMissing = errors.New("template missing")

// TemplateStore loads template bytes by file name
type TemplateStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// DirStore serves templates from a local directory
type DirStore struct {
	Root string
}

// Load reads name from the root directory; names may not leave it
func (s DirStore) Load(ctx context.Context, name string) ([]byte, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid template name %q", name)
	}
	b, err := os.ReadFile(filepath.Join(s.Root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrTemplateMissing
	}
	return b, err
}

// Registry resolves template variants and caches their bytes. Cached bytes are
// never modified after they are stored.
type Registry struct {
	store TemplateStore

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewRegistry wraps store with a read-through cache
func NewRegistry(store TemplateStore) *Registry {
	return &Registry{store: store, cache: make(map[string][]byte)}
}

// CandidateNames lists the variant file names for kind in lookup order
func CandidateNames(kind Kind, profile, currency string) []string {
	profile = strings.ToLower(strings.TrimSpace(profile))
	currency = strings.ToLower(strings.TrimSpace(currency))
	base := string(kind)

	var names []string
	if profile != "" && currency != "" {
		names = append(names, fmt.Sprintf("%s_%s_%s.docx", base, profile, currency))
	}
	if profile != "" {
		names = append(names, fmt.Sprintf("%s_%s.docx", base, profile))
	}
	if currency != "" {
		names = append(names, fmt.Sprintf("%s_%s.docx", base, currency))
	}
	return append(names, base+".docx")
}

// Resolve returns the most specific template available for the request
func (r *Registry) Resolve(ctx context.Context, kind Kind, profile, currency string) (string, []byte, error) {
	names := CandidateNames(kind, profile, currency)
	for _, name := range names {
		b, err := r.Load(ctx, name)
		if errors.Is(err, ErrTemplateMissing) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to load template %s: %w", name, err)
		}
		return name, b, nil
	}
	return "", nil, &TemplateNotFoundError{Names: names}
}

// Load returns a cached template or reads it from the store
func (r *Registry) Load(ctx context.Context, name string) ([]byte, error) {
	r.mu.RLock()
	b, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	b, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}
	r.cache[name] = b
	return b, nil
}

// Invalidate drops every cached template
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[string][]byte)
	r.mu.Unlock()
}
