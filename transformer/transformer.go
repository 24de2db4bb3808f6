// Copyright 2025 CrossGPU. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package transformer provides the public API for model configuration,
// weights, the forward pass, and model persistence.
//
// Example:
//
//	cfg := transformer.Tiny()
//	model, err := transformer.NewRandomModel(cfg, 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dev, _ := device.Open(device.CPU)
//	input, _ := model.EmbedTokens(ids)
//	out, err := model.Forward(dev, input)
package transformer

import (
	"io"

	"github.com/crossgpu-ml/crossgpu/internal/tensor"
	"github.com/crossgpu-ml/crossgpu/internal/transformer"
)

// Tensor is the host tensor type models are built from.
type Tensor = tensor.Tensor

// Config describes a Transformer model.
type Config = transformer.Config

// Model is a complete transformer: configuration, embeddings, per-layer
// weights, and the final layer norm.
type Model = transformer.Model

// Weight groupings.
type (
	AttentionWeights   = transformer.AttentionWeights
	FeedForwardWeights = transformer.FeedForwardWeights
	LayerNormWeights   = transformer.LayerNormWeights
	LayerWeights       = transformer.LayerWeights
)

// Error types.
type (
	// ModelLoadError reports a corrupt or incompatible persisted model.
	ModelLoadError = transformer.ModelLoadError
	// SerializationError reports a failure while writing a model out.
	SerializationError = transformer.SerializationError
)

// Tiny returns a small reference configuration (~140MB of f32 weights).
func Tiny() Config {
	return transformer.Tiny()
}

// NewModel validates the configuration and every weight shape.
func NewModel(cfg Config, tokenEmb, posEmb *Tensor, layers []LayerWeights, finalNorm LayerNormWeights) (*Model, error) {
	return transformer.NewModel(cfg, tokenEmb, posEmb, layers, finalNorm)
}

// NewZeroModel builds a model with all-zero f32 weights.
func NewZeroModel(cfg Config) (*Model, error) {
	return transformer.NewZeroModel(cfg)
}

// NewRandomModel builds a model with small seeded random f32 weights.
func NewRandomModel(cfg Config, seed int64) (*Model, error) {
	return transformer.NewRandomModel(cfg, seed)
}

// Load reads a model from its binary format.
func Load(r io.Reader) (*Model, error) {
	return transformer.Load(r)
}

// LoadFile reads a model from a file.
func LoadFile(path string) (*Model, error) {
	return transformer.LoadFile(path)
}

// ReadConfigJSON parses and validates a JSON configuration.
func ReadConfigJSON(r io.Reader) (Config, error) {
	return transformer.ReadConfigJSON(r)
}
