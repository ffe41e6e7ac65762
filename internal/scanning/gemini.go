package scanning

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements Model using Google Gemini. The client is created on first use.
type Gemini struct {
	apiKey    string
	modelName string

	mu     sync.Mutex
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini model. A missing key is reported by Generate.
func NewGemini(apiKey string, modelName string) *Gemini {
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}
	return &Gemini{apiKey: apiKey, modelName: modelName}
}

func (g *Gemini) generativeModel(ctx context.Context) (*genai.GenerativeModel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.model != nil {
		return g.model, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g.client = client
	g.model = client.GenerativeModel(g.modelName)
	return g.model, nil
}

// Generate sends the prompt and image and concatenates the text parts of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string, img Image) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	model, err := g.generativeModel(ctx)
	if err != nil {
		return "", err
	}

	// genai.ImageData takes the format suffix ("png"), not the MIME type
	format := strings.TrimPrefix(img.MIMEType, "image/")
	if format == "" {
		format = "png"
	}
	resp, err := model.GenerateContent(ctx,
		genai.Text(systemPrompt),
		genai.ImageData(format, img.Data),
		genai.Text(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return strings.TrimSpace(text.String()), nil
}

// Close closes the Gemini client if one was created
func (g *Gemini) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
