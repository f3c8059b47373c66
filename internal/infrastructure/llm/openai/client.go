package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL         string
	APIKey          string
	ExtractionModel string
	AnalysisModel   string
	RequestTimeout  time.Duration
	RequestsPerMin  int
	MaxTokens       int
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.ExtractionModel == "" {
		c.ExtractionModel = "gpt-4o"
	}
	if c.AnalysisModel == "" {
		c.AnalysisModel = "gpt-4o-mini"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 120 * time.Second
	}
	if c.RequestsPerMin <= 0 {
		c.RequestsPerMin = 60
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	return c
}

// Client talks to an OpenAI-compatible chat/completions endpoint in
// JSON-object response mode. Calls are rate limited and routed through the
// retry/breaker executor.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	cfg = cfg.withDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMin)/60.0), cfg.RequestsPerMin),
		executor:   executor,
	}
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// chatJSON performs one structured-output chat completion and returns the
// message content. Transport and HTTP failures come back as ErrUpstream, an
// empty completion as ErrMalformedResponse.
func (c *Client) chatJSON(ctx context.Context, operation, model string, messages []message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqBody := map[string]any{
		"model":           model,
		"messages":        messages,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/chat/completions", reqBody, &response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai."+operation, call, classifyUpstreamError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapUpstream(operation, err)
	}

	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrMalformedResponse, operation,
			fmt.Errorf("completion has no choices"))
	}
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", domain.WrapError(domain.ErrMalformedResponse, operation,
			fmt.Errorf("completion content is empty"))
	}
	return content, nil
}
