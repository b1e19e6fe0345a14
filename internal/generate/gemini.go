package generate

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/KCD1111/DMVREAL/internal/common"
)

// GeminiConfig configures the hosted Gemini backend.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Options Options
}

// Gemini calls the Gemini API for generation. Used when no local model
// server is available.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
	log    *slog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Options == (Options{}) {
		cfg.Options = DefaultOptions()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, cfg: cfg, log: logger}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.cfg.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Options.Timeout)
		defer cancel()
	}

	temp := float32(g.cfg.Options.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if g.cfg.Options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.cfg.Options.MaxTokens)
	}

	g.log.Debug("gemini.generate.start", "model", g.cfg.Model, "prompt_len", len(prompt))
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", common.ErrCollaboratorUnavailable, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	g.log.Debug("gemini.generate.done", "response_len", len(text))
	return text, nil
}
