package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIClient implements the OpenAI chat completions provider
type OpenAIClient struct {
	adapter
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAI API request/response structures
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	TopP           float64               `json:"top_p,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
	Stream         bool                  `json:"stream"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a new OpenAI API client
func NewOpenAIClient(apiKey string, opts ...ClientOption) *OpenAIClient {
	cfg := newClientConfig(defaultOpenAIBaseURL, defaultOpenAIModel, opts)
	o := &OpenAIClient{
		adapter:    newAdapter(ProviderOpenAI, formatJSON, cfg),
		apiKey:     apiKey,
		baseURL:    cfg.baseURL,
		model:      cfg.model,
		httpClient: cfg.httpClient,
	}
	o.complete = o.chatCompletion
	return o
}

// Available reports whether an API key is configured
func (o *OpenAIClient) Available(ctx context.Context) bool {
	return o.apiKey != ""
}

func (o *OpenAIClient) chatCompletion(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := o.model
	if opts.Model != "" {
		model = opts.Model
	}

	resp, err := o.makeRequest(ctx, &openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      opts.MaxTokens,
		Temperature:    opts.Temperature,
		TopP:           opts.TopP,
		ResponseFormat: &openAIResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// makeRequest sends HTTP request to OpenAI API
func (o *OpenAIClient) makeRequest(ctx context.Context, req *openAIRequest) (*openAIResponse, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("UNAUTHORIZED: OpenAI API key not configured")
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			if bytes.Contains(body, []byte("insufficient_quota")) {
				return nil, fmt.Errorf("QUOTA_EXCEEDED: OpenAI quota exhausted")
			}
			return nil, fmt.Errorf("RATE_LIMIT: OpenAI rate limit exceeded")
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("UNAUTHORIZED: Invalid OpenAI API key")
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, fmt.Errorf("SERVICE_ERROR: OpenAI service temporarily unavailable (status %d)", resp.StatusCode)
		default:
			return nil, fmt.Errorf("API_ERROR: OpenAI request failed with status %d: %s", resp.StatusCode, readErrorBody(body))
		}
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if openAIResp.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}

	return &openAIResp, nil
}
