package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soukly/agentcore/core"
)

// GeneralChannel is the fact key used for conversation summaries persisted
// through the memory-write stage.
const GeneralChannel = "memory"

// Manager composes the fact store, vector index, and embedder into the
// reinforcement protocol:
//
//	UNSEEN -> INSERTED(r=confidence, p=0) -> REINFORCED(r+=dr) | CONTRADICTED(p+=dp)
//
// with repeatable self-transitions. Every store mutation is followed by a
// payload sync to the corresponding index point.
type Manager struct {
	store    FactStore
	index    Index
	embedder Embedder

	weights Weights
	deltaR  float64
	deltaP  float64

	log *zap.Logger
}

// Option configures the manager.
type Option func(*Manager)

// WithWeights overrides the retrieval scoring weights.
func WithWeights(w Weights) Option {
	return func(m *Manager) { m.weights = w }
}

// WithDeltas overrides the reinforcement/contradiction increments.
func WithDeltas(dr, dp float64) Option {
	return func(m *Manager) {
		m.deltaR = dr
		m.deltaP = dp
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a Manager with default weights and deltas.
func NewManager(store FactStore, index Index, embedder Embedder, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		index:    index,
		embedder: embedder,
		weights:  DefaultWeights,
		deltaR:   DefaultReinforceDelta,
		deltaP:   DefaultContradictDelta,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("memory")
	return m
}

// Weights returns the manager's scoring weights.
func (m *Manager) Weights() Weights { return m.weights }

// Insert persists a new fact seeded with extraction confidence and syncs the
// index. When an active row for the triple already exists it is returned
// unchanged; insertion never replaces or deletes prior values for the key.
func (m *Manager) Insert(ctx context.Context, userID, key, value string, confidence float64, source string) (*Fact, error) {
	existing, err := m.store.Get(ctx, userID, key, value)
	if err != nil {
		return nil, core.NewFault(core.KindDependency, fmt.Errorf("fact lookup: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	fact := &Fact{
		ID:        uuid.New().String(),
		UserID:    userID,
		Key:       key,
		Value:     value,
		RRaw:      confidence,
		Active:    true,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Insert(ctx, fact); err != nil {
		return nil, core.NewFault(core.KindDependency, fmt.Errorf("insert fact: %w", err))
	}

	// Read back for the store-assigned sequence.
	if stored, err := m.store.Get(ctx, userID, key, value); err == nil && stored != nil {
		fact = stored
	}

	m.syncPoint(ctx, fact)
	m.log.Info("fact inserted",
		zap.String("user_id", userID),
		zap.String("key", key),
		zap.Float64("confidence", confidence))
	return fact, nil
}

// Reinforce applies one explicit confirmation to the triple.
func (m *Manager) Reinforce(ctx context.Context, userID, key, value string) error {
	if err := m.store.IncrementReinforcement(ctx, userID, key, value, m.deltaR); err != nil {
		return core.NewFault(core.KindDependency, fmt.Errorf("reinforce: %w", err))
	}
	return m.resync(ctx, userID, key, value)
}

// Contradict applies one explicit negation to the triple. The row stays
// active; only its future retrieval rank drops.
func (m *Manager) Contradict(ctx context.Context, userID, key, value string) error {
	if err := m.store.IncrementContradiction(ctx, userID, key, value, m.deltaP); err != nil {
		return core.NewFault(core.KindDependency, fmt.Errorf("contradict: %w", err))
	}
	return m.resync(ctx, userID, key, value)
}

// Observe scans message against the user's active facts and applies any
// explicit confirmation or contradiction it matches. Best-effort: store
// failures are logged and swallowed, the turn is never blocked on memory.
func (m *Manager) Observe(ctx context.Context, userID, message string) {
	facts, err := m.store.ListActive(ctx, userID)
	if err != nil {
		m.log.Warn("fact scan skipped", zap.String("user_id", userID), zap.Error(err))
		return
	}
	for _, f := range facts {
		switch DetectConfirmation(message, f.Key, f.Value) {
		case SignalReinforce:
			if err := m.Reinforce(ctx, userID, f.Key, f.Value); err != nil {
				m.log.Warn("reinforce failed", zap.String("fact_id", f.ID), zap.Error(err))
			} else {
				m.log.Info("fact reinforced", zap.String("user_id", userID), zap.String("key", f.Key))
			}
		case SignalContradict:
			if err := m.Contradict(ctx, userID, f.Key, f.Value); err != nil {
				m.log.Warn("contradict failed", zap.String("fact_id", f.ID), zap.Error(err))
			} else {
				m.log.Info("fact contradicted", zap.String("user_id", userID), zap.String("key", f.Key))
			}
		}
	}
}

// Retrieve embeds query, overfetches limit*3 nearest points for the user,
// filters inactive rows, and re-ranks locally with the reinforcement scorer.
func (m *Manager) Retrieve(ctx context.Context, userID, query string, limit int) ([]RetrievedFact, error) {
	if limit <= 0 {
		limit = 5
	}
	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, core.NewFault(core.KindDependency, fmt.Errorf("embed query: %w", err))
	}

	hits, err := m.index.Query(ctx, vector, userID, limit*3)
	if err != nil {
		return nil, core.NewFault(core.KindDependency, fmt.Errorf("index query: %w", err))
	}

	filtered := hits[:0]
	for _, h := range hits {
		if h.Payload.UserID != userID || !h.Payload.Active {
			continue
		}
		filtered = append(filtered, h)
	}

	ranked := rank(filtered, m.weights)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	m.log.Debug("facts retrieved",
		zap.String("user_id", userID),
		zap.Int("hits", len(hits)),
		zap.Int("returned", len(ranked)))
	return ranked, nil
}

// StoreGeneral persists a conversation summary into the general memory
// channel of the fact store.
func (m *Manager) StoreGeneral(ctx context.Context, userID, summary string) error {
	if summary == "" {
		return nil
	}
	_, err := m.Insert(ctx, userID, GeneralChannel, summary, 0.5, "conversation")
	return err
}

// resync reads the triple back and pushes its counters to the index point.
func (m *Manager) resync(ctx context.Context, userID, key, value string) error {
	fact, err := m.store.Get(ctx, userID, key, value)
	if err != nil {
		return core.NewFault(core.KindDependency, fmt.Errorf("fact readback: %w", err))
	}
	if fact == nil {
		return nil
	}
	m.syncPoint(ctx, fact)
	return nil
}

// syncPoint (re)writes the fact's index point. The canonical text embeds
// deterministically, so re-embedding on every sync is cheap behind the
// caching embedder. Sync failures degrade retrieval quality, never the
// write path.
func (m *Manager) syncPoint(ctx context.Context, fact *Fact) {
	vector, err := m.embedder.Embed(ctx, fact.CanonicalText())
	if err != nil {
		m.log.Warn("point sync skipped: embed", zap.String("fact_id", fact.ID), zap.Error(err))
		return
	}
	var confirmed int64
	if !fact.LastConfirmedAt.IsZero() {
		confirmed = fact.LastConfirmedAt.Unix()
	}
	err = m.index.Upsert(ctx, Point{
		ID:     fact.ID,
		Vector: vector,
		Payload: Payload{
			UserID:          fact.UserID,
			Key:             fact.Key,
			Value:           fact.Value,
			RRaw:            fact.RRaw,
			PRaw:            fact.PRaw,
			Active:          fact.Active,
			LastConfirmedAt: confirmed,
			Seq:             fact.Seq,
		},
	})
	if err != nil {
		m.log.Warn("point sync failed", zap.String("fact_id", fact.ID), zap.Error(err))
	}
}
