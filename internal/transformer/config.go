// Package transformer holds the model configuration and per-layer weights,
// and drives the forward pass by composing kernel dispatches against
// whichever Device implementation the caller supplies.
package transformer

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Config describes a Transformer model. All fields must be positive and
// NHeads must divide DModel evenly; Validate enforces this at construction
// time so attention can never fail on it later.
type Config struct {
	DModel       int     `json:"d_model"`        // hidden size
	NHeads       int     `json:"n_heads"`        // attention heads
	NLayers      int     `json:"n_layers"`       // transformer layers
	DFF          int     `json:"d_ff"`           // feed-forward hidden size
	VocabSize    int     `json:"vocab_size"`     // token vocabulary size
	MaxSeqLen    int     `json:"max_seq_len"`    // maximum sequence length
	Dropout      float32 `json:"dropout"`        // training-time dropout rate, unused at inference
	LayerNormEps float32 `json:"layer_norm_eps"` // layer-norm epsilon
}

// Tiny returns a small reference configuration (~140MB of f32 weights).
func Tiny() Config {
	return Config{
		DModel:       512,
		NHeads:       8,
		NLayers:      6,
		DFF:          2048,
		VocabSize:    32000,
		MaxSeqLen:    512,
		Dropout:      0.1,
		LayerNormEps: 1e-5,
	}
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	switch {
	case c.DModel <= 0:
		return fmt.Errorf("transformer config: d_model must be positive, got %d", c.DModel)
	case c.NHeads <= 0:
		return fmt.Errorf("transformer config: n_heads must be positive, got %d", c.NHeads)
	case c.NLayers <= 0:
		return fmt.Errorf("transformer config: n_layers must be positive, got %d", c.NLayers)
	case c.DFF <= 0:
		return fmt.Errorf("transformer config: d_ff must be positive, got %d", c.DFF)
	case c.VocabSize <= 0:
		return fmt.Errorf("transformer config: vocab_size must be positive, got %d", c.VocabSize)
	case c.MaxSeqLen <= 0:
		return fmt.Errorf("transformer config: max_seq_len must be positive, got %d", c.MaxSeqLen)
	case c.LayerNormEps <= 0:
		return fmt.Errorf("transformer config: layer_norm_eps must be positive, got %g", c.LayerNormEps)
	case c.DModel%c.NHeads != 0:
		return fmt.Errorf("transformer config: n_heads %d does not divide d_model %d", c.NHeads, c.DModel)
	}
	return nil
}

// EstimateSize returns the approximate model size in bytes for f32 weights.
func (c Config) EstimateSize() int {
	embedding := (c.VocabSize + c.MaxSeqLen) * c.DModel * 4
	perLayer := (4*c.DModel*c.DModel + 2*c.DModel*c.DFF + 4*c.DModel) * 4
	return embedding + perLayer*c.NLayers
}

// WriteJSON writes the configuration as JSON.
func (c Config) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return &SerializationError{Reason: "marshal config", Err: err}
	}
	if _, err := w.Write(data); err != nil {
		return &SerializationError{Reason: "write config", Err: err}
	}
	return nil
}

// ReadConfigJSON parses and validates a JSON configuration.
func ReadConfigJSON(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, &ModelLoadError{Reason: "read config", Err: err}
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, &ModelLoadError{Reason: "parse config", Err: err}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
