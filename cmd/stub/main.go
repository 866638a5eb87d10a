// Command stub serves an OpenAI-compatible chat endpoint, a SerpAPI-shaped
// search endpoint and a few HTML pages so the service can run end to end
// without external keys.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

var pages = map[string]string{
	"go":      "Go is a statically typed, compiled programming language designed at Google. It is known for simple syntax, fast builds and built-in concurrency with goroutines and channels.",
	"gophers": "Gophers are small burrowing rodents found in North America. They dig extensive tunnel systems and spend most of their lives underground.",
	"redis":   "Redis is an in-memory data store used as a cache, message broker and database. It supports strings, hashes, lists, sets and sorted sets.",
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "gemini-1.5-flash"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	base := os.Getenv("STUB_BASE_URL")
	if strings.TrimSpace(base) == "" {
		host := addr
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		base = "http://" + host
	}

	r := chi.NewRouter()
	r.Get("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	})
	r.Post("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content
		writeJSON(w, map[string]any{
			"id":      "stub",
			"object":  "chat.completion",
			"model":   model,
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": answer(prompt, len(req.Messages))}}},
		})
	})
	r.Get("/search.json", func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(r.URL.Query().Get("q"))
		results := make([]map[string]any, 0, len(pages))
		for slug := range pages {
			if strings.Contains(q, slug) {
				results = append(results, map[string]any{
					"position": len(results) + 1,
					"title":    strings.ToUpper(slug[:1]) + slug[1:],
					"link":     base + "/pages/" + slug,
					"snippet":  pages[slug][:40],
				})
			}
		}
		writeJSON(w, map[string]any{"organic_results": results})
	})
	r.Get("/pages/{slug}", func(w http.ResponseWriter, r *http.Request) {
		text, ok := pages[chi.URLParam(r, "slug")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body><nav>Home Docs Blog</nav><article><p>%s</p></article><footer>stub</footer></body></html>", chi.URLParam(r, "slug"), text)
	})

	log.Info().Str("addr", addr).Str("model", model).Msg("stub listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("stub server failed")
	}
}

// answer echoes the first context line so grounding is visible in replies.
func answer(prompt string, messages int) string {
	const start, end = "--- START CONTEXT ---", "--- END CONTEXT ---"
	i := strings.Index(prompt, start)
	j := strings.Index(prompt, end)
	if i < 0 || j < i {
		return "I can only answer from provided context."
	}
	ctx := strings.TrimSpace(prompt[i+len(start) : j])
	var first string
	for _, line := range strings.Split(ctx, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Source URL:") || line == "---" {
			continue
		}
		first = line
		break
	}
	if first == "" {
		return "The search results do not contain enough information to answer."
	}
	return fmt.Sprintf("Based on the search results: %s\n\n(turn %d)", first, messages/2+1)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
