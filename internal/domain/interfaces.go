package domain

import "context"

// ProductRecord is one normalized catalog row. Absent columns collapse to the
// zero value; Price is never negative and InStock defaults to false.
type ProductRecord struct {
	Name        string
	Highlights  string
	Ingredients string
	Category    string
	SkinType    string
	Price       float64
	InStock     bool
}

// ProductDocument pairs the embedding input with the retrieval output for one
// product. SearchText is discarded after encoding; ContextText is what a
// search returns verbatim.
type ProductDocument struct {
	SearchText  string
	ContextText string
}

// SearchResult is a single nearest-neighbor hit. Position addresses the
// parallel context list.
type SearchResult struct {
	Position int
	Distance float32
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Embedder converts text into fixed-dimension vectors. Implementations must
// be deterministic for a fixed input and safe for concurrent use.
type Embedder interface {
	Name() string
	Dimension() int
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher is the retrieval contract exposed to every consumer channel.
// It returns at most k context blocks and never an error: a disabled or
// failing retrieval layer yields an empty result.
type Searcher interface {
	Search(ctx context.Context, query string, k int) []string
}

// Completer produces an assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}
