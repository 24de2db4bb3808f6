// Package tokenizer turns text into the token id sequences the model
// embeds, backed by the tiktoken BPE encodings.
package tokenizer

// Tokenizer is the core interface for text tokenization.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int, error)

	// Decode converts token IDs back to text.
	Decode(tokens []int) (string, error)

	// VocabSize returns the total vocabulary size.
	VocabSize() int

	// EosToken returns the end-of-sequence token ID, or -1 if the
	// encoding has none.
	EosToken() int

	// Name returns the tokenizer name.
	Name() string
}
