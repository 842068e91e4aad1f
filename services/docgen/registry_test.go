package docgen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	files map[string][]byte
	loads atomic.Int32
}

func (s *countingStore) Load(ctx context.Context, name string) ([]byte, error) {
	s.loads.Add(1)
	b, ok := s.files[name]
	if !ok {
		return nil, ErrTemplateMissing
	}
	return b, nil
}

func TestCandidateNames(t *testing.T) {
	tests := []struct {
		name     string
		profile  string
		currency string
		expected []string
	}{
		{
			name:     "Profile and currency",
			profile:  "Northwind",
			currency: "PHP",
			expected: []string{
				"quotation_northwind_php.docx",
				"quotation_northwind.docx",
				"quotation_php.docx",
				"quotation.docx",
			},
		},
		{
			name:     "Currency only",
			currency: "usd",
			expected: []string{"quotation_usd.docx", "quotation.docx"},
		},
		{
			name:     "Neither",
			expected: []string{"quotation.docx"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CandidateNames(KindQuotation, tt.profile, tt.currency))
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	store := &countingStore{files: map[string][]byte{
		"quotation.docx":     []byte("base"),
		"quotation_usd.docx": []byte("usd"),
	}}
	reg := NewRegistry(store)
	ctx := context.Background()

	t.Run("Most specific variant wins", func(t *testing.T) {
		name, b, err := reg.Resolve(ctx, KindQuotation, "northwind", "USD")
		require.NoError(t, err)
		assert.Equal(t, "quotation_usd.docx", name)
		assert.Equal(t, "usd", string(b))
	})

	t.Run("Falls back to base template", func(t *testing.T) {
		name, b, err := reg.Resolve(ctx, KindQuotation, "", "EUR")
		require.NoError(t, err)
		assert.Equal(t, "quotation.docx", name)
		assert.Equal(t, "base", string(b))
	})

	t.Run("Missing kind", func(t *testing.T) {
		_, _, err := reg.Resolve(ctx, KindCertificate, "", "")
		var notFound *TemplateNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, []string{"certificate.docx"}, notFound.Names)
		assert.True(t, IsInputError(err))
	})
}

func TestRegistryCachesLoads(t *testing.T) {
	store := &countingStore{files: map[string][]byte{"certificate.docx": []byte("coc")}}
	reg := NewRegistry(store)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := reg.Load(context.Background(), "certificate.docx")
			assert.NoError(t, err)
			assert.Equal(t, "coc", string(b))
		}()
	}
	wg.Wait()

	before := store.loads.Load()
	_, err := reg.Load(context.Background(), "certificate.docx")
	require.NoError(t, err)
	assert.Equal(t, before, store.loads.Load(), "cached templates are not reloaded")

	reg.Invalidate()
	_, err = reg.Load(context.Background(), "certificate.docx")
	require.NoError(t, err)
	assert.Equal(t, before+1, store.loads.Load())
}

func TestDirStore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "quotation.docx"), []byte("tmpl"), 0o644))
	store := DirStore{Root: root}
	ctx := context.Background()

	b, err := store.Load(ctx, "quotation.docx")
	require.NoError(t, err)
	assert.Equal(t, "tmpl", string(b))

	_, err = store.Load(ctx, "missing.docx")
	assert.ErrorIs(t, err, ErrTemplateMissing)

	for _, name := range []string{"../secret.docx", "sub/quotation.docx", "", ".."} {
		_, err := store.Load(ctx, name)
		assert.Error(t, err, name)
		assert.NotErrorIs(t, err, ErrTemplateMissing, name)
	}
}
