//go:build onnx

// Package onnx embeds text with a local all-MiniLM-style model through ONNX
// Runtime. Built only with the onnx tag; local runs and tests use the mock
// or cached embedders instead.
package onnx

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

const maxSeqLen = 128

// Config configures the embedder.
type Config struct {
	// ModelPath points at the .onnx model file.
	ModelPath string

	// TokenizerPath points at the HuggingFace tokenizer.json.
	TokenizerPath string

	// SharedLibraryPath optionally points at libonnxruntime; when empty the
	// runtime's default lookup applies.
	SharedLibraryPath string

	// Dimensions is the hidden size (default 384).
	Dimensions int
}

// Embedder runs tokenize -> transformer -> masked mean pooling -> L2 norm.
type Embedder struct {
	session *ort.DynamicAdvancedSession
	vocab   *wordPieceVocab
	dims    int
}

// New loads the model and tokenizer.
func New(cfg Config) (*Embedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("ModelPath is required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	vocab, err := loadVocab(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Embedder{session: session, vocab: vocab, dims: cfg.Dimensions}, nil
}

// Embed converts text to a unit vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ids := e.vocab.encode(text)
	if len(ids) > maxSeqLen-2 {
		ids = ids[:maxSeqLen-2]
	}

	inputIDs := make([]int64, maxSeqLen)
	attention := make([]int64, maxSeqLen)
	tokenTypes := make([]int64, maxSeqLen)

	inputIDs[0] = e.vocab.cls
	attention[0] = 1
	for i, id := range ids {
		inputIDs[i+1] = id
		attention[i+1] = 1
	}
	inputIDs[len(ids)+1] = e.vocab.sep
	attention[len(ids)+1] = 1

	shape := ort.NewShape(1, maxSeqLen)
	tensors := make([]ort.Value, 0, 3)
	for _, data := range [][]int64{inputIDs, attention, tokenTypes} {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			for _, prev := range tensors {
				prev.Destroy()
			}
			return nil, fmt.Errorf("create input tensor: %w", err)
		}
		tensors = append(tensors, t)
	}
	defer func() {
		for _, t := range tensors {
			t.Destroy()
		}
	}()

	outputs := []ort.Value{nil}
	if err := e.session.Run(tensors, outputs); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}
	return e.pool(out, attention)
}

// pool applies attention-masked mean pooling over [1, seq, hidden] output
// (or passes a pre-pooled [1, hidden] output through), then normalizes.
func (e *Embedder) pool(out *ort.Tensor[float32], attention []int64) ([]float32, error) {
	data := out.GetData()
	shape := out.GetShape()

	vec := make([]float32, e.dims)
	switch len(shape) {
	case 2:
		if len(data) < e.dims {
			return nil, fmt.Errorf("output dimension mismatch: got %d, want %d", len(data), e.dims)
		}
		copy(vec, data[:e.dims])
	case 3:
		seqLen, hidden := int(shape[1]), int(shape[2])
		if hidden != e.dims {
			return nil, fmt.Errorf("hidden size mismatch: got %d, want %d", hidden, e.dims)
		}
		var attended float32
		for i := 0; i < seqLen; i++ {
			if attention[i] == 0 {
				continue
			}
			attended++
			for j := 0; j < hidden; j++ {
				vec[j] += data[i*hidden+j]
			}
		}
		if attended == 0 {
			return nil, fmt.Errorf("empty attention mask")
		}
		for j := range vec {
			vec[j] /= attended
		}
	default:
		return nil, fmt.Errorf("unexpected output shape: %v", shape)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Close releases the session.
func (e *Embedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}

// wordPieceVocab is a minimal BERT WordPiece encoder.
type wordPieceVocab struct {
	tokens map[string]int64
	cls    int64
	sep    int64
	unk    int64
}

func loadVocab(path string) (*wordPieceVocab, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Model struct {
			Vocab map[string]int64 `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	v := &wordPieceVocab{tokens: parsed.Model.Vocab, cls: 101, sep: 102, unk: 100}
	if id, ok := parsed.Model.Vocab["[CLS]"]; ok {
		v.cls = id
	}
	if id, ok := parsed.Model.Vocab["[SEP]"]; ok {
		v.sep = id
	}
	if id, ok := parsed.Model.Vocab["[UNK]"]; ok {
		v.unk = id
	}
	return v, nil
}

func (v *wordPieceVocab) encode(text string) []int64 {
	var ids []int64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := v.tokens[word]; ok {
			ids = append(ids, id)
			continue
		}
		ids = append(ids, v.pieces(word)...)
	}
	return ids
}

// pieces greedily matches the longest known subword, prefixing continuations
// with ## per WordPiece convention.
func (v *wordPieceVocab) pieces(word string) []int64 {
	var ids []int64
	start := 0
	for start < len(word) {
		matched := false
		for end := len(word); end > start; end-- {
			piece := word[start:end]
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := v.tokens[piece]; ok {
				ids = append(ids, id)
				start = end
				matched = true
				break
			}
		}
		if !matched {
			ids = append(ids, v.unk)
			start++
		}
	}
	return ids
}
