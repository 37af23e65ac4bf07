package ai

import "context"

// TextGenerator generates text from a system prompt and user prompt.
// All completion providers (OpenAI-compatible, Gemini, Ollama) implement
// this interface. Errors are expected and handled by callers; the diagram
// pipeline substitutes a synthesized result instead of surfacing them.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
