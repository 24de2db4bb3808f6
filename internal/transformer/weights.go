package transformer

import (
	"fmt"
	"math/rand"

	"github.com/crossgpu-ml/crossgpu/internal/quant"
	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

// AttentionWeights holds the four projection matrices of one attention
// block, each shaped [d_model, d_model].
type AttentionWeights struct {
	WQ *tensor.Tensor // query projection
	WK *tensor.Tensor // key projection
	WV *tensor.Tensor // value projection
	WO *tensor.Tensor // output projection
}

// FeedForwardWeights holds the two linear layers of one feed-forward block:
// W1 [d_model, d_ff] and W2 [d_ff, d_model].
type FeedForwardWeights struct {
	W1 *tensor.Tensor
	W2 *tensor.Tensor
}

// LayerNormWeights holds one layer norm's parameters, each shaped [d_model].
type LayerNormWeights struct {
	Gain *tensor.Tensor
	Bias *tensor.Tensor
}

// LayerWeights holds the complete weights of one transformer layer.
type LayerWeights struct {
	Attention   AttentionWeights
	FeedForward FeedForwardWeights
	LN1         LayerNormWeights // after attention
	LN2         LayerNormWeights // after feed-forward
}

// Model is a complete transformer: configuration, embeddings, per-layer
// weights, and the final layer norm. Constructed once at load time and
// immutable thereafter; there is no training mutation path.
type Model struct {
	Config            Config
	TokenEmbedding    *tensor.Tensor // [vocab_size, d_model]
	PositionEmbedding *tensor.Tensor // [max_seq_len, d_model]
	Layers            []LayerWeights
	FinalNorm         LayerNormWeights
}

// NewModel validates the configuration and every weight shape, failing at
// construction rather than mid-pass.
func NewModel(cfg Config, tokenEmb, posEmb *tensor.Tensor, layers []LayerWeights, finalNorm LayerNormWeights) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(layers) != cfg.NLayers {
		return nil, fmt.Errorf("model: got %d layers, config says %d", len(layers), cfg.NLayers)
	}
	if err := checkShape("token embedding", tokenEmb, tensor.Shape{cfg.VocabSize, cfg.DModel}); err != nil {
		return nil, err
	}
	if err := checkShape("position embedding", posEmb, tensor.Shape{cfg.MaxSeqLen, cfg.DModel}); err != nil {
		return nil, err
	}

	d, dff := cfg.DModel, cfg.DFF
	proj := tensor.Shape{d, d}
	vec := tensor.Shape{d}
	for i, layer := range layers {
		checks := []struct {
			name string
			t    *tensor.Tensor
			want tensor.Shape
		}{
			{"wq", layer.Attention.WQ, proj},
			{"wk", layer.Attention.WK, proj},
			{"wv", layer.Attention.WV, proj},
			{"wo", layer.Attention.WO, proj},
			{"w1", layer.FeedForward.W1, tensor.Shape{d, dff}},
			{"w2", layer.FeedForward.W2, tensor.Shape{dff, d}},
			{"ln1 gain", layer.LN1.Gain, vec},
			{"ln1 bias", layer.LN1.Bias, vec},
			{"ln2 gain", layer.LN2.Gain, vec},
			{"ln2 bias", layer.LN2.Bias, vec},
		}
		for _, c := range checks {
			if err := checkShape(fmt.Sprintf("layer %d %s", i, c.name), c.t, c.want); err != nil {
				return nil, err
			}
		}
	}
	if err := checkShape("final norm gain", finalNorm.Gain, vec); err != nil {
		return nil, err
	}
	if err := checkShape("final norm bias", finalNorm.Bias, vec); err != nil {
		return nil, err
	}

	return &Model{
		Config:            cfg,
		TokenEmbedding:    tokenEmb,
		PositionEmbedding: posEmb,
		Layers:            layers,
		FinalNorm:         finalNorm,
	}, nil
}

func checkShape(name string, t *tensor.Tensor, want tensor.Shape) error {
	if t == nil {
		return fmt.Errorf("model: %s tensor is nil", name)
	}
	if !t.Shape().Equal(want) {
		return fmt.Errorf("model: %s: %w", name,
			&tensor.ShapeMismatchError{Expected: want, Actual: t.Shape()})
	}
	return nil
}

// NewZeroModel builds a model with all-zero f32 weights. Useful for tests
// and for sizing experiments.
func NewZeroModel(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	build := func(shape tensor.Shape) *tensor.Tensor {
		t, err := tensor.New(shape, tensor.F32)
		if err != nil {
			panic(err) // shapes derive from a validated config
		}
		return t
	}
	return assembleModel(cfg, build)
}

// NewRandomModel builds a model with small random f32 weights drawn from a
// seeded source, so runs are reproducible.
func NewRandomModel(cfg Config, seed int64) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	build := func(shape tensor.Shape) *tensor.Tensor {
		t, err := tensor.New(shape, tensor.F32)
		if err != nil {
			panic(err)
		}
		values := t.Float32sUnchecked()
		for i := range values {
			values[i] = float32(rng.NormFloat64()) * 0.02
		}
		return t
	}
	return assembleModel(cfg, build)
}

func assembleModel(cfg Config, build func(tensor.Shape) *tensor.Tensor) (*Model, error) {
	d, dff := cfg.DModel, cfg.DFF
	ones := func() *tensor.Tensor {
		t := build(tensor.Shape{d})
		values := t.Float32sUnchecked()
		for i := range values {
			values[i] = 1
		}
		return t
	}

	layers := make([]LayerWeights, cfg.NLayers)
	for i := range layers {
		layers[i] = LayerWeights{
			Attention: AttentionWeights{
				WQ: build(tensor.Shape{d, d}),
				WK: build(tensor.Shape{d, d}),
				WV: build(tensor.Shape{d, d}),
				WO: build(tensor.Shape{d, d}),
			},
			FeedForward: FeedForwardWeights{
				W1: build(tensor.Shape{d, dff}),
				W2: build(tensor.Shape{dff, d}),
			},
			LN1: LayerNormWeights{Gain: ones(), Bias: build(tensor.Shape{d})},
			LN2: LayerNormWeights{Gain: ones(), Bias: build(tensor.Shape{d})},
		}
	}

	return NewModel(cfg,
		build(tensor.Shape{cfg.VocabSize, d}),
		build(tensor.Shape{cfg.MaxSeqLen, d}),
		layers,
		LayerNormWeights{Gain: ones(), Bias: build(tensor.Shape{d})},
	)
}

// EmbedTokens builds the [len(ids), d_model] input tensor by summing token
// and position embeddings on the host. This is the step callers run before
// Forward.
func (m *Model) EmbedTokens(ids []int) (*tensor.Tensor, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("embed: empty token sequence")
	}
	if len(ids) > m.Config.MaxSeqLen {
		return nil, fmt.Errorf("embed: sequence length %d exceeds max_seq_len %d", len(ids), m.Config.MaxSeqLen)
	}

	tok, err := m.TokenEmbedding.Float32s()
	if err != nil {
		return nil, fmt.Errorf("embed: token embedding: %w", err)
	}
	pos, err := m.PositionEmbedding.Float32s()
	if err != nil {
		return nil, fmt.Errorf("embed: position embedding: %w", err)
	}

	d := m.Config.DModel
	out, err := tensor.New(tensor.Shape{len(ids), d}, tensor.F32)
	if err != nil {
		return nil, err
	}
	values := out.Float32sUnchecked()
	for i, id := range ids {
		if id < 0 || id >= m.Config.VocabSize {
			return nil, fmt.Errorf("embed: token id %d outside vocabulary of size %d", id, m.Config.VocabSize)
		}
		for c := 0; c < d; c++ {
			values[i*d+c] = tok[id*d+c] + pos[i*d+c]
		}
	}
	return out, nil
}

// QuantizeWeights round-trips every projection and feed-forward weight
// through the quantization codec and returns a new model with the lossy f32
// weights. Embeddings and layer-norm parameters are left untouched; they
// are small and precision-sensitive.
func (m *Model) QuantizeWeights(params quant.Params) (*Model, error) {
	roundTrip := func(t *tensor.Tensor) (*tensor.Tensor, error) {
		q, err := quant.Quantize(t, params)
		if err != nil {
			return nil, err
		}
		return quant.Dequantize(q, params)
	}

	layers := make([]LayerWeights, len(m.Layers))
	for i, layer := range m.Layers {
		var err error
		out := layer
		if out.Attention.WQ, err = roundTrip(layer.Attention.WQ); err != nil {
			return nil, fmt.Errorf("layer %d wq: %w", i, err)
		}
		if out.Attention.WK, err = roundTrip(layer.Attention.WK); err != nil {
			return nil, fmt.Errorf("layer %d wk: %w", i, err)
		}
		if out.Attention.WV, err = roundTrip(layer.Attention.WV); err != nil {
			return nil, fmt.Errorf("layer %d wv: %w", i, err)
		}
		if out.Attention.WO, err = roundTrip(layer.Attention.WO); err != nil {
			return nil, fmt.Errorf("layer %d wo: %w", i, err)
		}
		if out.FeedForward.W1, err = roundTrip(layer.FeedForward.W1); err != nil {
			return nil, fmt.Errorf("layer %d w1: %w", i, err)
		}
		if out.FeedForward.W2, err = roundTrip(layer.FeedForward.W2); err != nil {
			return nil, fmt.Errorf("layer %d w2: %w", i, err)
		}
		layers[i] = out
	}

	return NewModel(m.Config, m.TokenEmbedding, m.PositionEmbedding, layers, m.FinalNorm)
}
