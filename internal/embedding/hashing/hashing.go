package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultDimension matches the footprint of small sentence-embedding models.
const DefaultDimension = 384

// Encoder is a feature-hashing sentence encoder. Tokens are bucketed by
// FNV-1a with a sign split, accumulated by term frequency and L2-normalized.
// It is corpus-independent and deterministic, so queries can be encoded
// against a cached index without any retained training state.
type Encoder struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

// NewEncoder creates a hashing encoder with the given dimension, or
// DefaultDimension when it is not positive.
func NewEncoder(dimension int) *Encoder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Encoder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Encoder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Encoder) Dimension() int { return e.dimension }

// Encode maps each text to a fixed-dimension vector. The context is only
// consulted between texts; encoding itself is pure computation.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.encode(text)
	}
	return vectors, nil
}

func (e *Encoder) encode(text string) []float32 {
	vec := make([]float32, e.dimension)
	for _, token := range e.tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		bucket := int(sum % uint32(e.dimension))
		if sum&(1<<31) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if n := math.Sqrt(norm); n > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / n)
		}
	}
	return vec
}
