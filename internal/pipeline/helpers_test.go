package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/pks0715/seggy/internal/model"
)

// groundedText passes the default quality gate and is easy to recognise.
const groundedText = "Revenue rose to $138.2M in 2023 from $120.5M in 2022; EBITDA margin 28.5%."

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedGenerator answers each request with respond and records prompts.
type scriptedGenerator struct {
	mu      sync.Mutex
	prompts []string
	budgets []int
	respond func(prompt string) model.GenerationOutcome
}

// Generate implements Generator.
func (g *scriptedGenerator) Generate(_ context.Context, req model.GenerationRequest) model.GenerationOutcome {
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.budgets = append(g.budgets, req.MaxOutputTokens)
	g.mu.Unlock()
	return g.respond(req.Prompt)
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// promptsWith returns the recorded prompts containing substr.
func (g *scriptedGenerator) promptsWith(substr string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, p := range g.prompts {
		if strings.Contains(p, substr) {
			out = append(out, p)
		}
	}
	return out
}

func isSynthesisPrompt(prompt string) bool {
	return strings.HasPrefix(prompt, "You are synthesizing")
}

func exhausted() model.GenerationOutcome {
	return model.AllBackendsExhausted([]model.Attempt{{Backend: "m", Kind: model.OutcomeBackendError}})
}

// staticExtractor returns fixed documents and names.
type staticExtractor struct {
	docs  []model.Document
	names []string
}

// Extract implements DocumentExtractor.
func (e staticExtractor) Extract(_ context.Context, _ []model.Upload) ([]model.Document, []string) {
	return e.docs, e.names
}

// makeDocs builds n documents named doc01.pdf, doc02.pdf, ...
func makeDocs(n int) ([]model.Document, []string) {
	docs := make([]model.Document, n)
	names := make([]string, n)
	for i := range n {
		name := fmt.Sprintf("doc%02d.pdf", i+1)
		docs[i] = model.Document{Name: name, Text: "Balance sheet of " + name}
		names[i] = name
	}
	return docs, names
}

var testBackends = []model.Backend{{Name: "primary", Endpoint: "https://example.test/v1", Model: "m"}}
