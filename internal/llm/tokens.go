package llm

import "strings"

// modelLimits maps a model name to its context window in tokens.
// Unknown models fall back to defaultLimit.
var modelLimits = map[string]int{
	"gemini-1.5-pro":     2097152,
	"gemini-1.5-flash":   1048576,
	"gemini-1.5":         1048576,
	"gemini-pro":         32760,
	"gpt-4o":             128000,
	"gpt-4o-mini":        128000,
	"gpt-4-turbo":        128000,
	"gpt-4":              8192,
	"gpt-3.5-turbo":      16385,
	"claude-3-opus":      200000,
	"claude-3-sonnet":    200000,
	"claude-3-haiku":     200000,
	"claude-3-5-sonnet":  200000,
}

const defaultLimit = 100000

// warningFraction is the fraction of a model's limit past which
// CheckPromptSize sets Warning rather than failing outright.
const warningFraction = 0.8

// ModelLimit returns the configured context-window size for model,
// or defaultLimit if the model is not in the table. Names match by
// prefix; the longest matching table entry wins.
func ModelLimit(model string) int {
	best, bestLen := defaultLimit, -1
	for name, limit := range modelLimits {
		if strings.HasPrefix(model, name) && len(name) > bestLen {
			best, bestLen = limit, len(name)
		}
	}
	return best
}

// CountTokens approximates token count as ceil(len(text)/4), the
// fallback strategy used whenever a provider does not expose a
// native tokenizer.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// PromptSizeCheck is the outcome of validating a prompt against a
// model's token limit.
type PromptSizeCheck struct {
	Tokens  int
	Limit   int
	Warning bool
}

// CheckPromptSize counts text and compares it against model's limit.
// Callers should fail with a PromptTooLarge-classified error when the
// returned error is non-nil; Warning reports the softer 0.8·limit
// threshold, which the caller should log rather than fail on.
func CheckPromptSize(text, model string) (PromptSizeCheck, error) {
	tokens := CountTokens(text)
	limit := ModelLimit(model)
	check := PromptSizeCheck{Tokens: tokens, Limit: limit}
	if tokens > limit {
		return check, promptTooLargeErr(tokens, model, limit)
	}
	if float64(tokens) > warningFraction*float64(limit) {
		check.Warning = true
	}
	return check, nil
}
