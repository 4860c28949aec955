package memory

import (
	"context"
	"time"
)

// Fact is one (key, value) assertion about a user, with independent trust
// counters. Multiple values for the same key coexist; disambiguation is
// entirely a function of the scorer, never of storage.
type Fact struct {
	ID     string
	UserID string
	Key    string
	Value  string

	// RRaw and PRaw are monotonically non-decreasing; only increment
	// operations exist.
	RRaw float64
	PRaw float64

	Active bool
	Source string

	CreatedAt       time.Time
	LastConfirmedAt time.Time // zero when never confirmed

	// Seq is the store-assigned insertion order, used as the final ranking
	// tie-break.
	Seq int64
}

// CanonicalText is the fixed template a fact is embedded from. Embedding
// text is never the raw user utterance, so near-duplicate facts stay
// comparable.
func (f *Fact) CanonicalText() string {
	return "user." + f.Key + " = " + f.Value
}

// FactStore is the relational persistence contract. Counter increments must
// be serialized per (user_id, fact_key, fact_value) triple.
type FactStore interface {
	// Insert persists a new fact row. The caller seeds RRaw with extraction
	// confidence.
	Insert(ctx context.Context, fact *Fact) error

	// IncrementReinforcement adds delta to r_raw for the active triple and
	// stamps last_confirmed_at.
	IncrementReinforcement(ctx context.Context, userID, key, value string, delta float64) error

	// IncrementContradiction adds delta to p_raw for the active triple.
	// It never deletes or deactivates the row.
	IncrementContradiction(ctx context.Context, userID, key, value string, delta float64) error

	// Get returns the active row for the triple, or nil when absent.
	Get(ctx context.Context, userID, key, value string) (*Fact, error)

	// ListActive returns every active fact for the user.
	ListActive(ctx context.Context, userID string) ([]*Fact, error)

	Close() error
}

// SummaryStore persists conversation summaries keyed by chat thread.
type SummaryStore interface {
	SaveSummary(ctx context.Context, chatID, summary string) error
	LatestSummary(ctx context.Context, chatID string) (string, error)
}

// Payload mirrors the fact fields kept alongside each vector point. Every
// fact mutation is followed by a payload sync so the index never serves
// stale counters for ranking.
type Payload struct {
	UserID          string
	Key             string
	Value           string
	RRaw            float64
	PRaw            float64
	Active          bool
	LastConfirmedAt int64
	Seq             int64
}

// Point is one entry in the vector index; ID equals the fact ID.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Hit is one nearest-neighbor result with cosine similarity.
type Hit struct {
	ID         string
	Similarity float64
	Payload    Payload
}

// Index is the vector storage contract.
type Index interface {
	// Upsert writes or replaces the point for a fact.
	Upsert(ctx context.Context, point Point) error

	// Query returns up to limit nearest points for the user by cosine
	// similarity, highest first.
	Query(ctx context.Context, vector []float32, userID string, limit int) ([]Hit, error)

	Close() error
}

// Embedder converts text to a fixed-dimension vector, deterministic for
// identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
