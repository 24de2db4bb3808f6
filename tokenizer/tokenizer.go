// Package tokenizer provides text tokenization for model inference.
//
// It wraps the internal tokenizer implementations behind a small public
// API.
//
// Example:
//
//	tok, err := tokenizer.NewTikToken("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ids, _ := tok.Encode("Hello, world!")
//	text, _ := tok.Decode(ids)
package tokenizer

import (
	"github.com/crossgpu-ml/crossgpu/internal/tokenizer"
)

// Tokenizer is the core interface for text tokenization.
type Tokenizer = tokenizer.Tokenizer

// NewTikToken creates a tokenizer for the named encoding.
//
// Supported encodings: "cl100k_base" (GPT-4), "p50k_base" (GPT-3).
func NewTikToken(encodingName string) (Tokenizer, error) {
	return tokenizer.NewTikToken(encodingName)
}

// NewTikTokenForModel creates a tokenizer for a specific model name.
//
// Example models: "gpt-4", "gpt-3.5-turbo".
func NewTikTokenForModel(modelName string) (Tokenizer, error) {
	return tokenizer.NewTikTokenForModel(modelName)
}
