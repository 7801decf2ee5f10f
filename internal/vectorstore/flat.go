package vectorstore

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sort"

	"beautybot/internal/domain"
)

// FlatIndex is an exact nearest-neighbor index over float32 vectors using
// squared Euclidean distance. Insertion order is the only addressing key:
// position i in the index corresponds to entry i in whatever parallel
// collection the caller maintains. Vectors are never mutated after Add.
type FlatIndex struct {
	dimension int
	vectors   [][]float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dimension int) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &FlatIndex{dimension: dimension}, nil
}

// Len returns the number of stored vectors.
func (x *FlatIndex) Len() int { return len(x.vectors) }

// Dimension returns the vector dimension of the index.
func (x *FlatIndex) Dimension() int { return x.dimension }

// Add appends vectors in input order.
func (x *FlatIndex) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v), x.dimension)
		}
	}
	x.vectors = append(x.vectors, vectors...)
	return nil
}

// Search returns the k nearest vectors to query, ascending by squared L2
// distance with ties broken by insertion order. k is clamped to the index
// size; a non-positive k yields an empty result.
func (x *FlatIndex) Search(query []float32, k int) ([]domain.SearchResult, error) {
	if len(query) != x.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), x.dimension)
	}
	if k <= 0 || len(x.vectors) == 0 {
		return nil, nil
	}
	if k > len(x.vectors) {
		k = len(x.vectors)
	}
	results := make([]domain.SearchResult, len(x.vectors))
	for i, v := range x.vectors {
		results[i] = domain.SearchResult{Position: i, Distance: squaredL2(query, v)}
	}
	// Stable sort keeps insertion order among equal distances.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	return results[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

type flatIndexFile struct {
	Dimension int
	Vectors   [][]float32
}

// Encode writes the index to w in its private binary format.
func (x *FlatIndex) Encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(flatIndexFile{Dimension: x.dimension, Vectors: x.vectors})
}

// DecodeFlatIndex reads an index previously written by Encode, reproducing
// identical vectors in identical order.
func DecodeFlatIndex(r io.Reader) (*FlatIndex, error) {
	var file flatIndexFile
	if err := gob.NewDecoder(r).Decode(&file); err != nil {
		return nil, err
	}
	if file.Dimension <= 0 {
		return nil, errors.New("invalid index dimension")
	}
	for _, v := range file.Vectors {
		if len(v) != file.Dimension {
			return nil, errors.New("stored vector dimension mismatch")
		}
	}
	return &FlatIndex{dimension: file.Dimension, vectors: file.Vectors}, nil
}
