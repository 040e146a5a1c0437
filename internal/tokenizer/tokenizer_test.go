package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunesRoundTrip(t *testing.T) {
	tok := Runes{}

	for _, text := range []string{"", "hello", "héllo wörld", "日本語"} {
		tokens := tok.Encode(text)
		assert.Equal(t, tok.Count(text), len(tokens))
		assert.Equal(t, text, tok.Decode(tokens))
	}
}

func TestRunesPrefixDecode(t *testing.T) {
	tok := Runes{}
	text := "decoding a prefix never exceeds the prefix length"

	tokens := tok.Encode(text)
	for _, k := range []int{0, 1, 10, len(tokens)} {
		prefix := tok.Decode(tokens[:k])
		assert.LessOrEqual(t, tok.Count(prefix), k)
	}
}
