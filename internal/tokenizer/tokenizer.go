package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer converts text to and from embedding-provider token ids.
// Implementations must guarantee that decoding the first k tokens of
// Encode(text) yields text whose own token count is <= k, so truncating
// a token slice never produces an over-budget string.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
	Count(text string) int
}

const encodingName = "cl100k_base"

// Tiktoken wraps the cl100k_base byte-pair encoding used by the
// embedding provider. Construct it once and share it; the encoder is
// immutable and safe for concurrent use.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the cl100k_base encoding.
func NewTiktoken() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", encodingName, err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

func (t *Tiktoken) Count(text string) int {
	return len(t.Encode(text))
}

// Runes is a deterministic offline Tokenizer that treats every rune as
// one token. It trivially satisfies the prefix-decode contract and needs
// no BPE data, which makes it the tokenizer of choice in tests.
type Runes struct{}

func (Runes) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (Runes) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, tok := range tokens {
		runes[i] = rune(tok)
	}
	return string(runes)
}

func (Runes) Count(text string) int {
	return utf8.RuneCountInString(text)
}
