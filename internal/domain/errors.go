package domain

import "errors"

var (
	// ErrDataUnavailable means no readable product catalog could be found.
	ErrDataUnavailable = errors.New("product catalog unavailable")

	// ErrEmptyCorpus means the catalog was read but produced zero documents.
	ErrEmptyCorpus = errors.New("catalog yielded no documents")

	// ErrEmbedderUnavailable means the embedding engine failed to load or encode.
	ErrEmbedderUnavailable = errors.New("embedding engine unavailable")

	// ErrCacheCorrupt means the cached index and context list disagree or
	// could not be decoded. A corrupt cache is discarded as a whole.
	ErrCacheCorrupt = errors.New("retrieval cache corrupt")

	// ErrIndexBuild means vector index construction failed.
	ErrIndexBuild = errors.New("vector index build failed")
)
