package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"beautybot/internal/catalog"
	"beautybot/internal/domain"
	"beautybot/internal/vectorstore"
)

// Config holds the catalog locations used when the cache has to be rebuilt.
type Config struct {
	CleanedCatalogPath string
	RawCatalogPath     string
}

// RetrievalService owns the embedding engine, the vector index and the
// parallel context list for the lifetime of the process. It starts
// Unavailable and becomes Ready after a successful cache load or rebuild;
// any initialization failure leaves it Unavailable permanently (no automatic
// retry), and Search then returns empty results instead of erroring.
type RetrievalService struct {
	cfg      Config
	embedder domain.Embedder
	cache    *vectorstore.Cache
	log      *logrus.Entry

	// rebuildMu serializes full pipeline runs so two concurrent rebuilds
	// cannot interleave their cache writes.
	rebuildMu sync.Mutex

	mu       sync.RWMutex
	ready    bool
	index    *vectorstore.FlatIndex
	contexts []string
}

var _ domain.Searcher = (*RetrievalService)(nil)

// NewRetrievalService creates an Unavailable service. Call Initialize to
// bring it up.
func NewRetrievalService(cfg Config, embedder domain.Embedder, cache *vectorstore.Cache, logger *logrus.Logger) *RetrievalService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RetrievalService{
		cfg:      cfg,
		embedder: embedder,
		cache:    cache,
		log:      logger.WithField("component", "retrieval"),
	}
}

// Initialize attempts a cache load and falls back to a full rebuild from the
// catalog. The returned error is informational: callers are expected to log
// it and keep serving without product grounding.
func (s *RetrievalService) Initialize(ctx context.Context) error {
	if s.embedder == nil {
		s.log.Warn("no embedding engine, product grounding disabled")
		return domain.ErrEmbedderUnavailable
	}

	index, contexts, err := s.cache.Load()
	if err == nil {
		s.install(index, contexts)
		s.log.WithField("products", len(contexts)).Info("retrieval index loaded from cache")
		return nil
	}
	if errors.Is(err, domain.ErrCacheCorrupt) {
		s.log.WithError(err).Warn("discarding corrupt retrieval cache")
	} else if !os.IsNotExist(err) {
		s.log.WithError(err).Warn("retrieval cache unreadable")
	}

	if err := s.Rebuild(ctx); err != nil {
		s.log.WithError(err).Error("retrieval initialization failed, product grounding disabled")
		return err
	}
	return nil
}

// Rebuild runs the full pipeline: load catalog, synthesize documents, embed,
// build the index and persist the cache. On success the new index and
// context list are swapped in atomically; on failure the previous state is
// kept untouched.
func (s *RetrievalService) Rebuild(ctx context.Context) error {
	if s.embedder == nil {
		return domain.ErrEmbedderUnavailable
	}
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	records, err := catalog.Load(s.cfg.CleanedCatalogPath, s.cfg.RawCatalogPath)
	if err != nil {
		return err
	}
	documents, err := catalog.Synthesize(records)
	if err != nil {
		return err
	}

	texts := make([]string, len(documents))
	contexts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = doc.SearchText
		contexts[i] = doc.ContextText
	}

	s.log.WithField("products", len(texts)).Info("embedding product catalog")
	vectors, err := s.embedder.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmbedderUnavailable, err)
	}
	if len(vectors) != len(contexts) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d documents", domain.ErrIndexBuild, len(vectors), len(contexts))
	}

	index, err := vectorstore.NewFlatIndex(len(vectors[0]))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}
	if err := index.Add(vectors); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}

	if err := s.cache.Save(index, contexts); err != nil {
		return fmt.Errorf("saving retrieval cache: %w", err)
	}
	s.install(index, contexts)
	s.log.WithField("products", index.Len()).Info("retrieval index rebuilt and cached")
	return nil
}

func (s *RetrievalService) install(index *vectorstore.FlatIndex, contexts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index
	s.contexts = contexts
	s.ready = true
}

// Ready reports whether the service can answer searches.
func (s *RetrievalService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Size returns the number of indexed products, zero when Unavailable.
func (s *RetrievalService) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

// Search encodes the query and returns the context blocks of the k nearest
// products. It returns an empty result when the service is Unavailable or
// when anything goes wrong; no error ever reaches a consumer channel.
func (s *RetrievalService) Search(ctx context.Context, query string, k int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil
	}

	vectors, err := s.embedder.Encode(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		s.log.WithError(err).Warn("query encoding failed")
		return nil
	}

	results, err := s.index.Search(vectors[0], k)
	if err != nil {
		s.log.WithError(err).Warn("index search failed")
		return nil
	}

	contexts := make([]string, 0, len(results))
	for _, r := range results {
		// Out-of-range positions cannot occur while the cardinality
		// invariant holds, but a stale artifact must not crash a request.
		if r.Position < 0 || r.Position >= len(s.contexts) {
			continue
		}
		contexts = append(contexts, s.contexts[r.Position])
	}
	return contexts
}
