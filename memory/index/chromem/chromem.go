// Package chromem implements the memory.Index contract on chromem-go, a
// pure Go embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/soukly/agentcore/memory"
)

// Index stores one collection per user for namespace isolation.
type Index struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-memory index.
func New() (*Index, error) {
	return &Index{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (x *Index) collection(userID string) (*chromem.Collection, error) {
	x.mu.RLock()
	col, ok := x.collections[userID]
	x.mu.RUnlock()
	if ok {
		return col, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if col, ok := x.collections[userID]; ok {
		return col, nil
	}

	name := "facts_" + userID
	if userID == "" {
		name = "facts_global"
	}
	col, err := x.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	x.collections[userID] = col
	return col, nil
}

// Upsert writes or replaces the point for a fact. Re-adding a document with
// the same ID replaces it, which is how payload syncs land.
func (x *Index) Upsert(ctx context.Context, point memory.Point) error {
	col, err := x.collection(point.Payload.UserID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        point.ID,
		Content:   "user." + point.Payload.Key + " = " + point.Payload.Value,
		Embedding: point.Vector,
		Metadata:  encodePayload(point.Payload),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query returns up to limit nearest points for the user, highest similarity
// first.
func (x *Index) Query(ctx context.Context, vector []float32, userID string, limit int) ([]memory.Hit, error) {
	col, err := x.collection(userID)
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= collection size; walk the limit down
	// until the query fits.
	var results []chromem.Result
	for n := limit; n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, vector, n, nil, nil)
		if err == nil {
			break
		}
		if isTooFewDocs(err) {
			if n == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	hits := make([]memory.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, memory.Hit{
			ID:         r.ID,
			Similarity: float64(r.Similarity),
			Payload:    decodePayload(r.Metadata),
		})
	}
	return hits, nil
}

// Close releases resources. chromem keeps everything in memory.
func (x *Index) Close() error {
	return nil
}

func encodePayload(p memory.Payload) map[string]string {
	active := "0"
	if p.Active {
		active = "1"
	}
	return map[string]string{
		"user_id":           p.UserID,
		"fact_key":          p.Key,
		"fact_value":        p.Value,
		"r_raw":             strconv.FormatFloat(p.RRaw, 'f', -1, 64),
		"p_raw":             strconv.FormatFloat(p.PRaw, 'f', -1, 64),
		"active":            active,
		"last_confirmed_at": strconv.FormatInt(p.LastConfirmedAt, 10),
		"seq":               strconv.FormatInt(p.Seq, 10),
	}
}

func decodePayload(meta map[string]string) memory.Payload {
	rRaw, _ := strconv.ParseFloat(meta["r_raw"], 64)
	pRaw, _ := strconv.ParseFloat(meta["p_raw"], 64)
	confirmed, _ := strconv.ParseInt(meta["last_confirmed_at"], 10, 64)
	seq, _ := strconv.ParseInt(meta["seq"], 10, 64)
	return memory.Payload{
		UserID:          meta["user_id"],
		Key:             meta["fact_key"],
		Value:           meta["fact_value"],
		RRaw:            rRaw,
		PRaw:            pRaw,
		Active:          meta["active"] == "1",
		LastConfirmedAt: confirmed,
		Seq:             seq,
	}
}

func isTooFewDocs(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
