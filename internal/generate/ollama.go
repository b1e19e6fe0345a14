package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/KCD1111/DMVREAL/internal/common"
)

// OllamaConfig configures the local Ollama backend.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Options Options
	// RequestsPerSecond throttles calls to the local server; zero disables
	// the limiter.
	RequestsPerSecond float64
}

func (c *OllamaConfig) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "llama3:8b"
	}
	if c.Options == (Options{}) {
		c.Options = DefaultOptions()
	}
}

// Ollama calls a local Ollama server's /api/generate endpoint.
type Ollama struct {
	cfg     OllamaConfig
	httpc   *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewOllama(cfg OllamaConfig, logger *slog.Logger) *Ollama {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Ollama{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Options.Timeout},
		limiter: limiter,
		log:     logger,
	}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  o.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": o.cfg.Options.Temperature,
			"num_predict": o.cfg.Options.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	url := strings.TrimRight(o.cfg.BaseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	o.log.Debug("ollama.generate.start", "model", o.cfg.Model, "prompt_len", len(prompt))
	resp, err := o.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ollama: %v", common.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama status %d: %s", common.ErrCollaboratorUnavailable, resp.StatusCode, truncate(string(raw), 200))
	}

	var or ollamaResponse
	if err := json.Unmarshal(raw, &or); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if or.Error != "" {
		return "", fmt.Errorf("ollama: %s", or.Error)
	}
	o.log.Debug("ollama.generate.done", "response_len", len(or.Response))
	return or.Response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
