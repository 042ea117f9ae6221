// Package generation provides the external text-generation collaborator
// behind the engine.Generator interface. The engine treats it as an
// opaque function: prompt+context in, candidate text out.
package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"codewarden/internal/engine"
	"codewarden/internal/logging"
)

const defaultModel = "gemini-2.5-flash"

// systemInstruction frames the collaborator as a code generator that
// honors correction directives verbatim.
const systemInstruction = `You are a code generation collaborator inside a verification loop.
Produce ONLY the requested source code, no markdown fences, no commentary.
When the context contains correction directives, apply every one of them
without reintroducing previously fixed violations.`

// GeminiGenerator implements engine.Generator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// Config for the Gemini generator.
type Config struct {
	APIKey string
	Model  string
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate produces one candidate artifact. Failures are wrapped as
// engine.GenerationError so the loop can apply its retry policy.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt, genContext string) (string, error) {
	user := prompt
	if genContext != "" {
		user = prompt + "\n\n" + genContext
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(user),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		},
	)
	if err != nil {
		return "", &engine.GenerationError{Err: err}
	}

	text := stripFences(result.Text())
	if text == "" {
		return "", &engine.GenerationError{Err: fmt.Errorf("model returned empty candidate")}
	}
	logging.Get(logging.CategoryGeneration).Debug("generated %d bytes with %s", len(text), g.model)
	return text, nil
}

// stripFences removes markdown code fences the model sometimes adds
// despite the instruction.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
