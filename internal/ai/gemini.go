package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wpietrzak/kadrio/internal/prompt"
)

// GeminiOpts configures a Gemini-backed Provider.
type GeminiOpts struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// Gemini generates completions through the Google Generative AI API.
type Gemini struct {
	client      *genai.Client
	modelName   string
	temperature float32
	maxTokens   int32
}

// NewGemini creates a Gemini provider. The API key falls back to the
// GEMINI_API_KEY environment variable when not set explicitly.
func NewGemini(ctx context.Context, opts GeminiOpts) (*Gemini, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ai: gemini api key is required")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("ai: create gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}
	return &Gemini{
		client:      cl,
		modelName:   model,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string {
	return g.modelName
}

// Complete sends the assembled prompt as a chat exchange. The system
// entry becomes the model's system instruction, the history pairs become
// chat history, and the final user entry is the message sent.
func (g *Gemini) Complete(ctx context.Context, messages []prompt.Message) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(g.temperature)
	m.SetMaxOutputTokens(g.maxTokens)

	var history []*genai.Content
	var current string
	for _, msg := range messages {
		switch msg.Role {
		case prompt.RoleSystem:
			m.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
		case prompt.RoleUser:
			current = msg.Content
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		case prompt.RoleAssistant:
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}
	if current == "" {
		return "", fmt.Errorf("ai: prompt has no user message")
	}
	// The final user entry is sent as the live message, not as history.
	history = history[:len(history)-1]

	cs := m.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(current))
	if err != nil {
		return "", fmt.Errorf("ai: gemini send: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

var _ Provider = (*Gemini)(nil)
