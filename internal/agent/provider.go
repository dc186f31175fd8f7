package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Base URLs for the supported chat-completions providers.
const (
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// HTTPDoer abstracts HTTP clients used by providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChatProvider implements Provider for OpenAI-compatible chat-completions APIs.
type ChatProvider struct {
	Name        string
	APIKey      string
	BaseURL     string
	Client      HTTPDoer
	Model       string
	Temperature float64
}

// ProviderOptions configures provider construction.
type ProviderOptions struct {
	Provider    string
	Model       string
	BaseURL     string
	Temperature float64
	Client      HTTPDoer
}

// ProviderFromEnv builds a provider reading the API key from the environment.
// OPENAI_API_KEY is preferred and LLM_API_KEY is the fallback.
func ProviderFromEnv(opts ProviderOptions) (*ChatProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY or LLM_API_KEY is required")
	}
	return NewChatProvider(opts, apiKey)
}

// NewChatProvider constructs a provider with an explicit API key.
func NewChatProvider(opts ProviderOptions, apiKey string) (*ChatProvider, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Provider))
	if name == "" {
		name = "openai"
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	switch name {
	case "openai":
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
	case "openrouter":
		if baseURL == "" {
			baseURL = defaultOpenRouterBaseURL
		}
	default:
		return nil, fmt.Errorf("unsupported provider %q", opts.Provider)
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &ChatProvider{
		Name:        name,
		APIKey:      apiKey,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Client:      client,
		Model:       opts.Model,
		Temperature: opts.Temperature,
	}, nil
}

// Stream sends a prompt and returns the parsed stream of events.
func (p *ChatProvider) Stream(ctx context.Context, prompt Prompt) (Stream, error) {
	messages, err := buildChatMessages(prompt)
	if err != nil {
		return nil, err
	}
	temperature := p.Temperature
	requestBody := chatRequest{
		Model:       p.Model,
		Stream:      true,
		Messages:    messages,
		Temperature: &temperature,
	}
	if len(prompt.Tools) > 0 {
		requestBody.Tools = buildChatTools(prompt.Tools)
		requestBody.ToolChoice = "auto"
	}
	payload, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s error (status %d): %s", p.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	events, err := parseChatStream(resp.Body)
	if err != nil {
		return nil, err
	}
	return &staticStream{events: events}, nil
}
