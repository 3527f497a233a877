package middleware

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// EstimateTokens counts tokens in text with the GPT-4 encoding, which
// tracks all supported providers closely enough for usage reporting.
// Falls back to character-based estimation (4 chars per token) when the
// tokenizer is unavailable or rejects the text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	codecOnce.Do(func() {
		codec, _ = tokenizer.ForModel(tokenizer.GPT4)
	})
	if codec == nil {
		return len(text) / 4
	}

	count, err := codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}
