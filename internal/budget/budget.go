package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// EstimateConversationTokens estimates the prompt size of a chat request made
// of prior turns and the new prompt.
func EstimateConversationTokens(system string, history []string, prompt string) int {
	total := EstimateTokens(system) + EstimateTokens(prompt)
	for _, h := range history {
		total += EstimateTokens(h)
	}
	return total
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to a sensible default.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	name = strings.TrimPrefix(name, "models/")
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	for _, p := range prefixModelMax {
		if strings.HasPrefix(name, p.prefix) {
			return p.tokens
		}
	}
	if strings.HasSuffix(name, "128k") || strings.Contains(name, "-mini") {
		return 128_000
	}
	return 8192
}

// RemainingContext computes the remaining input token budget given a model,
// a desired reservation for output generation, and the estimated prompt tokens.
// The result is never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
	maxCtx := ModelContextTokens(modelName)
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := maxCtx - reservedForOutput - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FitsInContext reports whether the prompt can fit into the model's context
// window when reserving the specified number of output tokens.
func FitsInContext(modelName string, reservedForOutput int, promptTokens int) bool {
	return RemainingContext(modelName, reservedForOutput, promptTokens) > 0
}

// knownModelMax contains rough context sizes for common model identifiers.
var knownModelMax = map[string]int{
	"gemini-1.5-flash":    1_000_000,
	"gemini-1.5-flash-8b": 1_000_000,
	"gemini-1.5-pro":      2_000_000,
	"gemini-2.0-flash":    1_000_000,
	"gemini-pro":          32_768,

	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-3.5-turbo": 16_384,

	"llama-3":   8_192,
	"llama-3.1": 128_000,
}

// prefixModelMax catches versioned names such as gemini-1.5-flash-002.
var prefixModelMax = []struct {
	prefix string
	tokens int
}{
	{"gemini-1.5-pro", 2_000_000},
	{"gemini-1.5", 1_000_000},
	{"gemini-2", 1_000_000},
	{"gpt-4o", 128_000},
}
