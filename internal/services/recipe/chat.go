package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/socialchef/recipebox/internal/httpclient"
	"github.com/socialchef/recipebox/internal/metrics"
)

type providerDefaults struct {
	baseURL string
	model   string
}

var defaults = map[ProviderType]providerDefaults{
	ProviderGroq:     {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.3-70b-versatile"},
	ProviderCerebras: {baseURL: "https://api.cerebras.ai/v1", model: "llama-3.3-70b"},
	ProviderOpenAI:   {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
}

type ChatOptions struct {
	Provider          ProviderType
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerSecond float64
	// Client overrides the instrumented client, mainly for tests.
	Client *http.Client
}

// ChatProvider talks to any OpenAI-compatible chat completions endpoint.
// Groq, Cerebras and OpenAI differ only in base URL, model and key.
type ChatProvider struct {
	name      ProviderType
	apiKey    string
	endpoint  string
	model     string
	maxTokens int
	client    *http.Client
	limiter   *rate.Limiter
}

func NewChatProvider(opts ChatOptions) *ChatProvider {
	d, ok := defaults[opts.Provider]
	if !ok {
		opts.Provider = ProviderGroq
		d = defaults[ProviderGroq]
	}
	if opts.BaseURL == "" {
		opts.BaseURL = d.baseURL
	}
	if opts.Model == "" {
		opts.Model = d.model
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 5000
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Client == nil {
		opts.Client = httpclient.NewInstrumentedClient(opts.Timeout)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &ChatProvider{
		name:      opts.Provider,
		apiKey:    opts.APIKey,
		endpoint:  strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		client:    opts.Client,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func (p *ChatProvider) Name() string { return string(p.name) }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractRecipe sends one deterministic completion request and returns the
// trimmed reply text.
func (p *ChatProvider) ExtractRecipe(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrMissingCredential)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%s: rate limiter: %w", p.name, err)
	}

	startTime := time.Now()
	out, err := p.do(ctx, prompt, systemPrompt)
	metrics.AIExtractionDuration.Record(ctx, time.Since(startTime).Seconds(),
		metric.WithAttributes(attribute.String("provider", string(p.name))))
	metrics.RecordExternalCall(ctx, string(p.name), startTime, err)
	return out, err
}

func (p *ChatProvider) do(ctx context.Context, prompt, systemPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, string(p.name)), http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s API error (status %d): %s", p.name, resp.StatusCode, truncate(string(respBody), 300))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}

	content := strings.TrimSpace(*chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
