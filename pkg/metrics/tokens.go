package metrics

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter estimates token counts for providers that do not report usage
// on streamed responses. The encoding is loaded on first use; when it cannot
// be loaded every estimate is zero.
type TokenCounter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenCounter builds a counter for the given model name.
func NewTokenCounter(model string) *TokenCounter {
	return &TokenCounter{model: model}
}

// Count returns the estimated number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if c == nil || text == "" {
		return 0
	}
	c.once.Do(c.load)
	if c.enc == nil {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate builds a TokenUsage from prompt and completion text.
func (c *TokenCounter) Estimate(prompt, completion string) TokenUsage {
	p := c.Count(prompt)
	out := c.Count(completion)
	return TokenUsage{PromptTokens: p, CompletionTokens: out, TotalTokens: p + out}
}

func (c *TokenCounter) load() {
	if enc, err := tiktoken.EncodingForModel(c.model); err == nil {
		c.enc = enc
		return
	}
	if enc, err := tiktoken.GetEncoding(fallbackEncoding); err == nil {
		c.enc = enc
	}
}
