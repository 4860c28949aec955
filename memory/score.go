package memory

import (
	"math"
	"sort"
)

// Reinforcement deltas. Contradiction is deliberately larger so explicit
// negation erodes trust faster than confirmation builds it.
const (
	DefaultReinforceDelta  = 1.0
	DefaultContradictDelta = 1.5
)

// Weights parameterize the retrieval ranking function
//
//	score = alpha*sim + gamma*sigmoid(r_raw) - beta*sigmoid(p_raw)
//
// The sigmoid bounds either counter's influence to (0,1), giving diminishing
// returns so neither term can unboundedly dominate raw similarity.
type Weights struct {
	Alpha float64
	Gamma float64
	Beta  float64
}

// DefaultWeights penalize contradiction more heavily than reinforcement is
// rewarded, mirroring the delta asymmetry above.
var DefaultWeights = Weights{Alpha: 1.0, Gamma: 1.2, Beta: 2.0}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Score blends cosine similarity with the reinforcement counters.
func (w Weights) Score(similarity, rRaw, pRaw float64) float64 {
	return w.Alpha*similarity + w.Gamma*Sigmoid(rRaw) - w.Beta*Sigmoid(pRaw)
}

// RetrievedFact is one ranked retrieval result. Text carries the canonical
// form so it can be injected into the prompt verbatim.
type RetrievedFact struct {
	FactID     string
	Key        string
	Value      string
	Text       string
	Similarity float64
	Score      float64
	RRaw       float64
	PRaw       float64

	lastConfirmed int64
	seq           int64
}

// rank orders hits by descending score; ties break by most-recent
// last_confirmed_at, then insertion order. Deterministic, never random.
func rank(hits []Hit, w Weights) []RetrievedFact {
	out := make([]RetrievedFact, 0, len(hits))
	for _, h := range hits {
		p := h.Payload
		out = append(out, RetrievedFact{
			FactID:        h.ID,
			Key:           p.Key,
			Value:         p.Value,
			Text:          "user." + p.Key + " = " + p.Value,
			Similarity:    h.Similarity,
			Score:         w.Score(h.Similarity, p.RRaw, p.PRaw),
			RRaw:          p.RRaw,
			PRaw:          p.PRaw,
			lastConfirmed: p.LastConfirmedAt,
			seq:           p.Seq,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].lastConfirmed != out[j].lastConfirmed {
			return out[i].lastConfirmed > out[j].lastConfirmed
		}
		return out[i].seq < out[j].seq
	})
	return out
}
