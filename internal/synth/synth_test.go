package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/deepfetch/internal/conversation"
)

type capturingClient struct {
	reqs  []openai.ChatCompletionRequest
	reply string
	err   error
}

func (c *capturingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.reply},
		}},
	}, nil
}

func TestGenerate_NotConfigured(t *testing.T) {
	var s *Synthesizer
	if _, err := s.Generate(context.Background(), "c", "q", nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	s = &Synthesizer{Client: &capturingClient{reply: "x"}}
	if s.Ready() {
		t.Fatalf("synthesizer without memory must not be ready")
	}
}

func TestGenerate_PromptAndHistory(t *testing.T) {
	cc := &capturingClient{reply: "first answer"}
	mem := conversation.New()
	s := &Synthesizer{Client: cc, Model: "gemini-1.5-flash", Memory: mem}

	if _, err := s.Generate(context.Background(), "Source URL: https://a.test\n\nalpha\n\n---\n\n", "what is alpha?", nil); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	cc.reply = "second answer"
	out, err := s.Generate(context.Background(), "ctx2", "and beta?", nil)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if out != "second answer" {
		t.Fatalf("unexpected reply %q", out)
	}
	req := cc.reqs[1]
	if req.Temperature != DefaultTemperature {
		t.Fatalf("temperature=%v", req.Temperature)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("expected prior user+assistant plus new prompt, got %d", len(req.Messages))
	}
	if req.Messages[1].Role != openai.ChatMessageRoleAssistant || req.Messages[1].Content != "first answer" {
		t.Fatalf("prior assistant turn missing: %+v", req.Messages[1])
	}
	last := req.Messages[2].Content
	for _, want := range []string{`USER QUERY: "and beta?"`, "--- START CONTEXT ---\nctx2\n--- END CONTEXT ---", "Based *only* on the context above"} {
		if !strings.Contains(last, want) {
			t.Fatalf("prompt missing %q:\n%s", want, last)
		}
	}
	if mem.Len() != 2 {
		t.Fatalf("expected two turns, got %d", mem.Len())
	}
}

func TestGenerate_FailureDoesNotAppend(t *testing.T) {
	mem := conversation.New()
	s := &Synthesizer{Client: &capturingClient{err: errors.New("quota exceeded")}, Memory: mem}
	if _, err := s.Generate(context.Background(), "c", "q", nil); err == nil {
		t.Fatalf("expected error")
	}
	s.Client = &capturingClient{reply: "   "}
	if _, err := s.Generate(context.Background(), "c", "q", nil); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("failed calls must not be recorded, got %d turns", mem.Len())
	}
}

func TestGenerate_SystemPromptFirst(t *testing.T) {
	cc := &capturingClient{reply: "ok"}
	s := &Synthesizer{Client: cc, Memory: conversation.New(), SystemPrompt: "Be brief."}
	if _, err := s.Generate(context.Background(), "c", "q", nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if m := cc.reqs[0].Messages[0]; m.Role != openai.ChatMessageRoleSystem || m.Content != "Be brief." {
		t.Fatalf("expected system message first, got %+v", m)
	}
}

func TestGenerate_AppendSources(t *testing.T) {
	cc := &capturingClient{reply: "Answer body."}
	s := &Synthesizer{Client: cc, Memory: conversation.New(), AppendSources: true}
	out, err := s.Generate(context.Background(), "c", "q", []string{"https://a.test", "https://b.test"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := "Answer body.\n\n---\nSources:\n- https://a.test\n- https://b.test"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}

	cc.reply = "Body\nSources:\n- https://a.test"
	out, _ = s.Generate(context.Background(), "c", "q", []string{"https://b.test"})
	if strings.Contains(out, "https://b.test") {
		t.Fatalf("existing sources section must be kept as is: %q", out)
	}
}

func TestGenerate_DefaultLeavesReplyAlone(t *testing.T) {
	cc := &capturingClient{reply: "Answer body."}
	s := &Synthesizer{Client: cc, Memory: conversation.New()}
	out, _ := s.Generate(context.Background(), "c", "q", []string{"https://a.test"})
	if out != "Answer body." {
		t.Fatalf("unexpected reply %q", out)
	}
}

func TestBuildPrompt_Literal(t *testing.T) {
	p := BuildPrompt(`say "hi"`, "CONTENT")
	if !strings.Contains(p, `USER QUERY: "say "hi""`) {
		t.Fatalf("query must be embedded verbatim:\n%s", p)
	}
	if !strings.Contains(p, "[Source: url]") {
		t.Fatalf("expected citation instruction")
	}
}
