// Package memory implements long-term user facts with explicit
// reinforcement, plus the short-term session buffer.
//
// A fact is a (key, value) assertion with two independent trust counters:
// r_raw accumulates explicit confirmations, p_raw accumulates explicit
// negations. Neither counter ever decreases and contradiction never deletes
// a row; competing values for the same key coexist and are disambiguated
// purely by the retrieval scorer.
//
// Architecture:
//   - FactStore: relational source of truth (sqlite implementation in
//     factstore/sqlite)
//   - Index: vector nearest-neighbor storage (chromem implementation in
//     index/chromem)
//   - Embedder: canonical-text embedding (mock, onnx, and caching
//     implementations in embedder/)
//   - Manager: composes the three and enforces the payload-sync discipline
//
// Retrieval ranks by alpha*sim + gamma*sigmoid(r_raw) - beta*sigmoid(p_raw),
// overfetching 3x and re-ranking locally.
package memory
