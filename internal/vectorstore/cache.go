package vectorstore

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"beautybot/internal/domain"
)

const (
	indexFileName    = "vector_index.bin"
	contextsFileName = "product_contexts.bin"
)

// Cache persists a FlatIndex together with its parallel context list as two
// co-located artifacts in a fixed directory. The pair is only ever written
// or discarded as a whole; a cache whose halves disagree is corrupt.
type Cache struct {
	dir string
}

// NewCache creates a cache rooted at dir. The directory is created on the
// first Save.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// IndexPath returns the location of the serialized index artifact.
func (c *Cache) IndexPath() string { return filepath.Join(c.dir, indexFileName) }

// ContextsPath returns the location of the serialized context list artifact.
func (c *Cache) ContextsPath() string { return filepath.Join(c.dir, contextsFileName) }

// Load reads both artifacts. A missing file surfaces as the underlying
// not-exist error; a decode failure or a cardinality mismatch between index
// and context list is ErrCacheCorrupt. Callers treat either outcome as an
// absent cache and rebuild.
func (c *Cache) Load() (*FlatIndex, []string, error) {
	indexFile, err := os.Open(c.IndexPath())
	if err != nil {
		return nil, nil, err
	}
	defer indexFile.Close()

	contextsFile, err := os.Open(c.ContextsPath())
	if err != nil {
		return nil, nil, err
	}
	defer contextsFile.Close()

	index, err := DecodeFlatIndex(indexFile)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decoding %s: %v", domain.ErrCacheCorrupt, indexFileName, err)
	}

	var contexts []string
	if err := gob.NewDecoder(contextsFile).Decode(&contexts); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding %s: %v", domain.ErrCacheCorrupt, contextsFileName, err)
	}

	if index.Len() != len(contexts) {
		return nil, nil, fmt.Errorf("%w: index has %d vectors but context list has %d entries",
			domain.ErrCacheCorrupt, index.Len(), len(contexts))
	}
	return index, contexts, nil
}

// Save overwrites both artifacts unconditionally. Each half is written to a
// temporary file first and the pair is renamed into place only after both
// writes succeed, so a crash mid-save never leaves one stale and one fresh
// artifact behind.
func (c *Cache) Save(index *FlatIndex, contexts []string) error {
	if index.Len() != len(contexts) {
		return fmt.Errorf("refusing to save misaligned cache: %d vectors, %d contexts", index.Len(), len(contexts))
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	indexTemp, err := writeTemp(c.dir, indexFileName, index.Encode)
	if err != nil {
		return err
	}
	contextsTemp, err := writeTemp(c.dir, contextsFileName, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(contexts)
	})
	if err != nil {
		_ = os.Remove(indexTemp)
		return err
	}

	if err := os.Rename(indexTemp, c.IndexPath()); err != nil {
		_ = os.Remove(indexTemp)
		_ = os.Remove(contextsTemp)
		return err
	}
	if err := os.Rename(contextsTemp, c.ContextsPath()); err != nil {
		_ = os.Remove(contextsTemp)
		return err
	}
	return nil
}

func writeTemp(dir, name string, encode func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return "", err
	}
	if err := encode(f); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
