// Package emb wraps a local ONNX sentence-encoder model behind a minimal
// Encode surface so callers never touch onnxruntime directly.
package emb

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// Config carries everything required to initialize the runtime and model.
type Config struct {
	OrtDLL        string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
}

// Encoder runs a transformer encoder via onnxruntime and mean-pools the last
// hidden state into a single L2-normalized vector per input.
type Encoder struct {
	mu   sync.Mutex
	tk   *tokenizer.Tokenizer
	sess *ort.DynamicAdvancedSession
	cfg  Config
}

// Init loads the tokenizer, initializes the ORT environment and creates the
// inference session. Call Close to release the native resources.
func (e *Encoder) Init(cfg Config) error {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return errors.New("emb: model and tokenizer paths are required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 512
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("emb: load tokenizer: %w", err)
	}

	if cfg.OrtDLL != "" {
		ort.SetSharedLibraryPath(cfg.OrtDLL)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("emb: initialize onnxruntime: %w", err)
		}
	}

	sess, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		nil)
	if err != nil {
		return fmt.Errorf("emb: create session: %w", err)
	}

	e.tk = tk
	e.sess = sess
	e.cfg = cfg
	return nil
}

// Close releases the ORT session and environment.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil {
		_ = e.sess.Destroy()
		e.sess = nil
	}
	_ = ort.DestroyEnvironment()
}

// Encode returns the pooled embedding for a single text.
func (e *Encoder) Encode(text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return nil, errors.New("emb: encoder is not initialized")
	}

	en, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("emb: tokenize: %w", err)
	}
	ids := en.Ids
	if len(ids) == 0 {
		return nil, errors.New("emb: empty token sequence")
	}
	if len(ids) > e.cfg.MaxSeqLen {
		ids = ids[:e.cfg.MaxSeqLen]
	}

	seqLen := int64(len(ids))
	inputIDs := make([]int64, len(ids))
	attention := make([]int64, len(ids))
	for i, id := range ids {
		inputIDs[i] = int64(id)
		attention[i] = 1
	}

	idsTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("emb: input tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), attention)
	if err != nil {
		return nil, fmt.Errorf("emb: mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.sess.Run([]ort.Value{idsTensor, maskTensor}, outputs); err != nil {
		return nil, fmt.Errorf("emb: run session: %w", err)
	}
	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("emb: unexpected output tensor type")
	}
	defer hidden.Destroy()

	shape := hidden.GetShape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("emb: unexpected output rank %d", len(shape))
	}
	tokens := int(shape[1])
	dim := int(shape[2])
	data := hidden.GetData()

	return meanPool(data, tokens, dim), nil
}

// meanPool averages the token states and L2-normalizes the result.
func meanPool(data []float32, tokens, dim int) []float32 {
	out := make([]float32, dim)
	for t := 0; t < tokens; t++ {
		base := t * dim
		for j := 0; j < dim; j++ {
			out[j] += data[base+j]
		}
	}
	var norm float64
	for j := range out {
		out[j] /= float32(tokens)
		norm += float64(out[j]) * float64(out[j])
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for j := range out {
			out[j] *= inv
		}
	}
	return out
}
