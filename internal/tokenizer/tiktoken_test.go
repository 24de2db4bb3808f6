package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTikToken(t *testing.T) {
	tests := []struct {
		name      string
		encoding  string
		wantErr   bool
		vocabSize int
	}{
		{name: "cl100k_base", encoding: "cl100k_base", vocabSize: 100256},
		{name: "p50k_base", encoding: "p50k_base", vocabSize: 50257},
		{name: "invalid encoding", encoding: "invalid_encoding_xyz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := NewTikToken(tt.encoding)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, tok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.vocabSize, tok.VocabSize())
			assert.Equal(t, tt.encoding, tok.Name())
		})
	}
}

func TestTikTokenRoundtrip(t *testing.T) {
	tok, err := NewTikToken("cl100k_base")
	require.NoError(t, err)

	texts := []string{
		"Hello, world!",
		"Hello\nWorld\n",
		"Hello 世界! 🌍",
		"",
		"The quick brown fox jumps over the lazy dog.",
	}
	for _, text := range texts {
		ids, err := tok.Encode(text)
		require.NoError(t, err)
		decoded, err := tok.Decode(ids)
		require.NoError(t, err)
		assert.Equal(t, text, decoded)
	}
}

func TestTikTokenForModel(t *testing.T) {
	tok, err := NewTikTokenForModel("gpt-4")
	require.NoError(t, err)

	ids, err := tok.Encode("token counting")
	require.NoError(t, err)
	assert.NotEmpty(t, ids)
	for _, id := range ids {
		assert.GreaterOrEqual(t, id, 0)
		assert.Less(t, id, tok.VocabSize())
	}
}
