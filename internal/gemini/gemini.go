// Package gemini implements the enrichment service on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jwulff/meetingnote/internal/errs"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

const summaryPrompt = `You are a meeting assistant. Summarize the meeting transcript below.
Answer in the same language as the transcript. Use short markdown bullet points
for the main topics and decisions. Do not invent facts that are not in the transcript.

Transcript:
`

const actionItemsPrompt = `You are a meeting assistant. Extract the action items from the meeting
transcript below. Answer in the same language as the transcript. Return a markdown
bullet list; each item names the owner (if stated), the task, and the deadline (if
stated). If there are no action items, say so in one sentence.

Transcript:
`

// generator is the part of the genai client the service uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Service calls Gemini for summaries and action items.
type Service struct {
	models generator
	model  string
}

// New creates a Service using apiKey.
func New(ctx context.Context, apiKey, model string) (*Service, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newService(client.Models, model), nil
}

func newService(g generator, model string) *Service {
	if model == "" {
		model = DefaultModel
	}
	return &Service{models: g, model: model}
}

// Summarize returns a markdown summary of transcript.
func (s *Service) Summarize(ctx context.Context, transcript string) (string, error) {
	return s.generate(ctx, summaryPrompt+transcript)
}

// ExtractActionItems returns a markdown list of action items in transcript.
func (s *Service) ExtractActionItems(ctx context.Context, transcript string) (string, error) {
	return s.generate(ctx, actionItemsPrompt+transcript)
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", errs.Enrichment(fmt.Errorf("generate content: %w", err))
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errs.Enrichment(errors.New("the model returned no text"))
	}
	return text, nil
}
