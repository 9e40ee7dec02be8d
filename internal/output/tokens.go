package output

import (
	"fmt"
	"unicode/utf8"
)

// CharsPerToken approximates how many characters an LLM tokenizer packs
// into one token for English prose and compact data.
const CharsPerToken = 4.0

// EstimateTokens returns an approximate token count for text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(float64(utf8.RuneCountInString(text))/CharsPerToken + 0.5)
}

// FormatTokenCount formats a token count for display. Counts of 1000 or
// more are shown as "X.Xk".
func FormatTokenCount(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	return fmt.Sprintf("%.1fk", float64(tokens)/1000)
}
