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
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-1.5-flash"
)

// GeminiClient implements the Google Generative AI provider
type GeminiClient struct {
	adapter
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Gemini API request/response structures
type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	TopP             float64 `json:"topP,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
			Role string `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(apiKey string, opts ...ClientOption) *GeminiClient {
	cfg := newClientConfig(defaultGeminiBaseURL, defaultGeminiModel, opts)
	g := &GeminiClient{
		adapter:    newAdapter(ProviderGoogle, formatJSON, cfg),
		apiKey:     apiKey,
		baseURL:    cfg.baseURL,
		model:      cfg.model,
		httpClient: cfg.httpClient,
	}
	g.complete = g.generateContent
	return g
}

// Available reports whether an API key is configured
func (g *GeminiClient) Available(ctx context.Context) bool {
	return g.apiKey != ""
}

func (g *GeminiClient) generateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := g.model
	if opts.Model != "" {
		model = opts.Model
	}

	req := &geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenConfig{
			Temperature:      opts.Temperature,
			MaxOutputTokens:  opts.MaxTokens,
			TopP:             opts.TopP,
			ResponseMimeType: "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)
	resp, err := g.makeRequest(ctx, endpoint, req)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// makeRequest sends HTTP request to Gemini API
func (g *GeminiClient) makeRequest(ctx context.Context, endpoint string, req *geminiRequest) (*geminiResponse, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("UNAUTHORIZED: Gemini API key not configured")
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Kept out of the URL so transport errors never carry the key
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
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
			return nil, fmt.Errorf("RATE_LIMIT: Gemini API rate limit exceeded")
		case http.StatusForbidden:
			if bytes.Contains(body, []byte("quota")) || bytes.Contains(body, []byte("QUOTA")) {
				return nil, fmt.Errorf("QUOTA_EXCEEDED: Gemini API quota exhausted")
			}
			return nil, fmt.Errorf("FORBIDDEN: Gemini API access denied - check API key permissions")
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("UNAUTHORIZED: Invalid Gemini API key")
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, fmt.Errorf("SERVICE_ERROR: Gemini service temporarily unavailable (status %d)", resp.StatusCode)
		default:
			return nil, fmt.Errorf("API_ERROR: Gemini request failed with status %d: %s", resp.StatusCode, readErrorBody(body))
		}
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if geminiResp.Error != nil {
		return nil, fmt.Errorf("Gemini API error: %s", geminiResp.Error.Message)
	}

	return &geminiResp, nil
}
