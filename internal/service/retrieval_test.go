package service

import (
	"context"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beautybot/internal/domain"
	"beautybot/internal/embedding/hashing"
	"beautybot/internal/vectorstore"
)

const catalogHeader = "product_name,highlights,ingredients,primary_category,skin_type,price_usd,out_of_stock\n"

func newTestService(t *testing.T, rows string) (*RetrievalService, string) {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "clean_product_info.csv")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalogHeader+rows), 0o644))

	cacheDir := filepath.Join(dir, "cache")
	svc := NewRetrievalService(Config{
		CleanedCatalogPath: catalogPath,
		RawCatalogPath:     filepath.Join(dir, "product_info.csv"),
	}, hashing.NewEncoder(64), vectorstore.NewCache(cacheDir), nil)
	return svc, cacheDir
}

func TestInitializeBuildsFromCatalog(t *testing.T) {
	svc, cacheDir := newTestService(t,
		"Hydra Serum,great for dry skin,,Serum,,48.0,0\n"+
			"Matte Cream,for oily skin,Clay,Moisturizer,Oily Skin,30.0,1\n")

	require.NoError(t, svc.Initialize(context.Background()))
	assert.True(t, svc.Ready())
	assert.Equal(t, 2, svc.Size())

	// both cache artifacts written
	_, err := os.Stat(filepath.Join(cacheDir, "vector_index.bin"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cacheDir, "product_contexts.bin"))
	require.NoError(t, err)
}

func TestSearchEndToEnd(t *testing.T) {
	svc, _ := newTestService(t, "Hydra Serum,great for dry skin,,Serum,,48.0,0\n")
	require.NoError(t, svc.Initialize(context.Background()))

	results := svc.Search(context.Background(), "dry skin serum", 1)
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "Product Name: Hydra Serum")
	assert.Contains(t, results[0], "Price: USD 48.00")
	assert.Contains(t, results[0], "Stock: In Stock")
	assert.Contains(t, results[0], "Ingredients: N/A")
}

func TestSearchDeterministic(t *testing.T) {
	svc, _ := newTestService(t,
		"Hydra Serum,great for dry skin,,Serum,,48.0,0\n"+
			"Matte Cream,for oily skin,Clay,Moisturizer,Oily Skin,30.0,1\n"+
			"Calm Toner,soothes sensitive skin,Aloe,Toner,Sensitive Skin,22.0,0\n")
	require.NoError(t, svc.Initialize(context.Background()))

	first := svc.Search(context.Background(), "soothing toner", 3)
	second := svc.Search(context.Background(), "soothing toner", 3)
	assert.Equal(t, first, second)
	assert.LessOrEqual(t, len(first), 3)
}

func TestSearchClampsK(t *testing.T) {
	svc, _ := newTestService(t, "Hydra Serum,great for dry skin,,Serum,,48.0,0\n")
	require.NoError(t, svc.Initialize(context.Background()))

	assert.Len(t, svc.Search(context.Background(), "serum", 10), 1)
	assert.Empty(t, svc.Search(context.Background(), "serum", 0))
	assert.Empty(t, svc.Search(context.Background(), "serum", -2))
}

func TestInitializeLoadsFromCache(t *testing.T) {
	svc, cacheDir := newTestService(t, "Hydra Serum,great for dry skin,,Serum,,48.0,0\n")
	require.NoError(t, svc.Initialize(context.Background()))
	want := svc.Search(context.Background(), "dry skin serum", 1)

	// second service has no readable catalog: only the cache can serve it
	dir := t.TempDir()
	cached := NewRetrievalService(Config{
		CleanedCatalogPath: filepath.Join(dir, "nope.csv"),
		RawCatalogPath:     filepath.Join(dir, "nope_raw.csv"),
	}, hashing.NewEncoder(64), vectorstore.NewCache(cacheDir), nil)

	require.NoError(t, cached.Initialize(context.Background()))
	assert.Equal(t, want, cached.Search(context.Background(), "dry skin serum", 1))
}

func TestInitializeRebuildsOnCorruptCache(t *testing.T) {
	svc, cacheDir := newTestService(t,
		"Hydra Serum,great for dry skin,,Serum,,48.0,0\n"+
			"Matte Cream,for oily skin,Clay,Moisturizer,Oily Skin,30.0,1\n")
	require.NoError(t, svc.Initialize(context.Background()))

	// shorten the context artifact so the pair disagrees
	f, err := os.Create(filepath.Join(cacheDir, "product_contexts.bin"))
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(f).Encode([]string{"only one"}))
	require.NoError(t, f.Close())

	fresh := NewRetrievalService(svc.cfg, hashing.NewEncoder(64), vectorstore.NewCache(cacheDir), nil)
	require.NoError(t, fresh.Initialize(context.Background()))
	assert.Equal(t, 2, fresh.Size())
}

func TestUnavailableServiceReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	svc := NewRetrievalService(Config{
		CleanedCatalogPath: filepath.Join(dir, "nope.csv"),
		RawCatalogPath:     filepath.Join(dir, "nope_raw.csv"),
	}, hashing.NewEncoder(64), vectorstore.NewCache(filepath.Join(dir, "cache")), nil)

	err := svc.Initialize(context.Background())
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.False(t, svc.Ready())
	assert.Empty(t, svc.Search(context.Background(), "anything", 3))
}

func TestNilEmbedderDisablesRetrieval(t *testing.T) {
	dir := t.TempDir()
	svc := NewRetrievalService(Config{}, nil, vectorstore.NewCache(filepath.Join(dir, "cache")), nil)

	err := svc.Initialize(context.Background())
	require.ErrorIs(t, err, domain.ErrEmbedderUnavailable)
	assert.False(t, svc.Ready())
	assert.Empty(t, svc.Search(context.Background(), "anything", 3))
}

func TestRebuildPicksUpCatalogChanges(t *testing.T) {
	svc, _ := newTestService(t, "Hydra Serum,great for dry skin,,Serum,,48.0,0\n")
	require.NoError(t, svc.Initialize(context.Background()))
	require.Equal(t, 1, svc.Size())

	rows := catalogHeader +
		"Hydra Serum,great for dry skin,,Serum,,48.0,0\n" +
		"New Balm,for dry skin,Shea,Balm,Dry Skin,15.0,0\n"
	require.NoError(t, os.WriteFile(svc.cfg.CleanedCatalogPath, []byte(rows), 0o644))

	// a restart alone would reuse the stale cache; only an explicit rebuild
	// reflects the new catalog
	require.NoError(t, svc.Rebuild(context.Background()))
	assert.Equal(t, 2, svc.Size())
}

func TestConcurrentRebuildsKeepCacheConsistent(t *testing.T) {
	svc, cacheDir := newTestService(t,
		"Hydra Serum,great for dry skin,,Serum,,48.0,0\n"+
			"Matte Cream,for oily skin,Clay,Moisturizer,Oily Skin,30.0,1\n")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Rebuild(context.Background())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// the on-disk pair must come from a single pipeline run
	fresh := NewRetrievalService(svc.cfg, hashing.NewEncoder(64), vectorstore.NewCache(cacheDir), nil)
	require.NoError(t, fresh.Initialize(context.Background()))
	assert.Equal(t, 2, fresh.Size())
}
