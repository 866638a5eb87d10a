package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/deepfetch/internal/budget"
	"github.com/hyperifyio/deepfetch/internal/conversation"
	"github.com/hyperifyio/deepfetch/internal/llm"
)

// DefaultTemperature is the sampling temperature for answers.
const DefaultTemperature float32 = 0.6

// reservedOutputTokens is kept free for the reply when checking context size.
const reservedOutputTokens = 2048

var (
	// ErrNotConfigured indicates there is no model client or memory.
	ErrNotConfigured = errors.New("synthesizer not configured")
	// ErrEmptyCompletion indicates the model returned no usable text.
	ErrEmptyCompletion = errors.New("empty completion")
)

// Synthesizer answers a query from aggregated page text while keeping the
// running conversation in Memory.
type Synthesizer struct {
	Client llm.Client
	Model  string
	Memory *conversation.Memory
	// Temperature, when zero, uses DefaultTemperature.
	Temperature float32
	// SystemPrompt, when non-empty, is sent ahead of the history.
	SystemPrompt string
	// AppendSources adds a "Sources:" list of contributing URLs when the
	// reply does not already end with one.
	AppendSources bool
}

// Ready reports whether Generate can reach a model.
func (s *Synthesizer) Ready() bool {
	return s != nil && s.Client != nil && s.Memory != nil
}

// Generate sends the grounding prompt plus prior turns to the model and
// records the exchange on success. Failed calls leave Memory untouched.
func (s *Synthesizer) Generate(ctx context.Context, content, query string, contributing []string) (string, error) {
	if !s.Ready() {
		return "", ErrNotConfigured
	}
	prompt := BuildPrompt(query, content)
	history := s.Memory.Turns()

	msgs := make([]openai.ChatCompletionMessage, 0, 2*len(history)+2)
	if strings.TrimSpace(s.SystemPrompt) != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s.SystemPrompt})
	}
	prior := make([]string, 0, 2*len(history))
	for _, t := range history {
		msgs = append(msgs,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Prompt},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.Reply},
		)
		prior = append(prior, t.Prompt, t.Reply)
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	model := s.Model
	if strings.TrimSpace(model) == "" {
		model = llm.DefaultModel
	}
	est := budget.EstimateConversationTokens(s.SystemPrompt, prior, prompt)
	ev := log.Debug()
	if !budget.FitsInContext(model, reservedOutputTokens, est) {
		ev = log.Warn()
	}
	ev.Str("model", model).Int("turns", len(history)).Int("est_tokens", est).
		Int("context_tokens", budget.ModelContextTokens(model)).Msg("generating answer")

	temp := s.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temp,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyCompletion
	}
	if s.AppendSources {
		reply = appendSources(reply, contributing)
	}
	s.Memory.Append(conversation.Turn{Prompt: prompt, Reply: reply})
	return reply, nil
}

// BuildPrompt renders the grounding instructions, the literal query, and the
// context block.
func BuildPrompt(query, content string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant designed to answer user queries based *only* on the provided web search context.\n")
	sb.WriteString("Analyze the following web search results carefully. Each result starts with \"Source URL: [url]\".\n")
	sb.WriteString("Synthesize the information to provide a comprehensive, accurate, and neutral response to the user's query.\n")
	sb.WriteString("Focus on information directly present in the provided text snippets.\n")
	sb.WriteString("Do not add information not found in the context. Do not make assumptions or inferences beyond the text.\n")
	sb.WriteString("If the provided context does not contain sufficient information to answer the query thoroughly, clearly state that the information is limited or not available in the search results.\n")
	sb.WriteString("Structure the response clearly. Use bullet points or numbered lists if appropriate for readability.\n")
	sb.WriteString("**Do NOT include inline source citations like [Source: url] within the main body of your answer.**\n\n")
	sb.WriteString("USER QUERY: \"")
	sb.WriteString(query)
	sb.WriteString("\"\n\nPROVIDED WEB SEARCH CONTEXT:\n--- START CONTEXT ---\n")
	sb.WriteString(content)
	sb.WriteString("\n--- END CONTEXT ---\n\n")
	sb.WriteString("Based *only* on the context above, answer the user query.")
	return sb.String()
}

func appendSources(reply string, urls []string) string {
	if len(urls) == 0 || strings.Contains(reply, "\nSources:\n") || strings.HasPrefix(reply, "Sources:\n") {
		return reply
	}
	var sb strings.Builder
	sb.WriteString(reply)
	sb.WriteString("\n\n---\nSources:\n")
	for i, u := range urls {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(u)
	}
	return sb.String()
}
