package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Provider IDs.
const (
	ProviderOpenAI       = "openai"
	ProviderGroq         = "groq"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
	ProviderLambda       = "lambda"
)

// DefaultModel is the chat model used with the openai provider.
const DefaultModel = "gpt-4o-2024-11-20"

// DefaultTemperature keeps translations consistent between runs.
const DefaultTemperature = 0.1

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for a translation backend.
type Provider struct {
	// ID is the provider identifier (openai, groq, ollama, custom-openai, lambda).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL. Unused by lambda.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier. For lambda it is the function name
	// or ARN.
	Model string
	// Temperature is the sampling temperature.
	Temperature float64
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderOpenAI: {
			ID:          ProviderOpenAI,
			Name:        "OpenAI",
			BaseURL:     "https://api.openai.com/v1",
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
			Timeout:     120 * time.Second,
		},
		ProviderGroq: {
			ID:          ProviderGroq,
			Name:        "Groq",
			BaseURL:     "https://api.groq.com/openai/v1",
			Temperature: DefaultTemperature,
			Timeout:     60 * time.Second,
		},
		ProviderOllama: {
			ID:          ProviderOllama,
			Name:        "Ollama",
			BaseURL:     "http://localhost:11434/v1",
			Temperature: DefaultTemperature,
			Timeout:     300 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:          ProviderCustomOpenAI,
			Name:        "Custom OpenAI",
			Temperature: DefaultTemperature,
			Timeout:     60 * time.Second,
		},
		ProviderLambda: {
			ID:      ProviderLambda,
			Name:    "AWS Lambda",
			Timeout: 120 * time.Second,
		},
	}
}

// NeedsAPIKey reports whether the provider authenticates with an API key.
func (p Provider) NeedsAPIKey() bool {
	switch p.ID {
	case ProviderOllama, ProviderLambda:
		return false
	}
	return true
}

// New returns the Translator for prov.
func New(ctx context.Context, prov Provider, prompt Prompt) (Translator, error) {
	switch prov.ID {
	case ProviderLambda:
		return NewLambdaTranslator(ctx, prov.Model)
	case ProviderCustomOpenAI:
		if prov.BaseURL == "" {
			return nil, fmt.Errorf("provider %s requires a base URL", prov.ID)
		}
	}
	if prov.Model == "" {
		return nil, fmt.Errorf("provider %s requires a model", prov.ID)
	}
	if prov.NeedsAPIKey() && prov.APIKey == "" {
		return nil, fmt.Errorf("provider %s requires an API key", prov.ID)
	}
	return NewChatClient(prov, prompt), nil
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// Chat completions client
// ---------------------------------------------------------------------------

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Code int
	Body string
	// RetryAfter is the server-requested wait, if any.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Code, truncate(e.Body, 500))
}

// Unwrap classifies status errors as transport failures.
func (e *StatusError) Unwrap() error { return ErrTransport }

// ChatClient calls an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	prov   Provider
	prompt Prompt
	client *http.Client
}

// NewChatClient returns a client for prov.
func NewChatClient(prov Provider, prompt Prompt) *ChatClient {
	return &ChatClient{prov: prov, prompt: prompt, client: makeHTTPClient(prov.Proxy, prov.Timeout)}
}

// Translate implements Translator with a single POST to /chat/completions.
func (c *ChatClient) Translate(ctx context.Context, req Request) ([]byte, error) {
	userPrompt, err := UserPrompt(req.Chunk, req.Languages)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}
	body, err := buildOpenAIChatRequest(c.prov.Model, c.prompt.SystemPrompt(), userPrompt, c.prov.Temperature, true)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	endpoint := strings.TrimRight(c.prov.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.prov.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.prov.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Body: string(respBody)}
		if resp.StatusCode == http.StatusTooManyRequests {
			se.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return nil, se
	}

	text, err := extractResponseText(respBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return []byte(text), nil
}

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64, jsonMode bool) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type format struct {
		Type string `json:"type"`
	}
	req := struct {
		Model          string  `json:"model"`
		Messages       []msg   `json:"messages"`
		Temperature    float64 `json:"temperature"`
		ResponseFormat *format `json:"response_format,omitempty"`
		Stream         bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	if jsonMode {
		req.ResponseFormat = &format{Type: "json_object"}
	}
	return json.Marshal(req)
}

// extractResponseText returns choices[0].message.content, or the API
// error message when the body carries one.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok && errObj != nil {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
