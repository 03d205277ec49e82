package contextbuild

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Truncator cuts text to a token budget by encoding, slicing the token
// sequence and decoding. Slicing tokens instead of bytes means truncation
// can never split a multibyte character.
type Truncator struct {
	encoding *tiktoken.Tiktoken
}

// NewTruncator loads the named tiktoken encoding (cl100k_base for the
// models this service targets).
func NewTruncator(encodingName string) (*Truncator, error) {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encodingName, err)
	}
	return &Truncator{encoding: encoding}, nil
}

// Truncate returns the text cut to at most budget tokens, plus the token
// counts before and after. Text within budget passes through unchanged.
func (t *Truncator) Truncate(text string, budget int) (string, int, int) {
	tokens := t.encoding.Encode(text, nil, nil)
	before := len(tokens)
	if budget <= 0 || before <= budget {
		return text, before, before
	}
	truncated := t.encoding.Decode(tokens[:budget])
	return truncated, before, budget
}

// CountTokens reports the token length of text.
func (t *Truncator) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}
