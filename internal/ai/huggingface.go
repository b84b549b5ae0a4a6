package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co"
	defaultHuggingFaceModel   = "mistralai/Mistral-7B-Instruct-v0.2"
)

// HuggingFaceClient implements the Hugging Face inference API provider.
// Responses use the tagged-text format. Feedback is synthesized locally.
type HuggingFaceClient struct {
	adapter
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type huggingFaceRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
}

type huggingFaceParameters struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	TopP           float64 `json:"top_p,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

type huggingFaceGeneration struct {
	GeneratedText string `json:"generated_text"`
}

type huggingFaceError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

// NewHuggingFaceClient creates a new Hugging Face inference client
func NewHuggingFaceClient(apiKey string, opts ...ClientOption) *HuggingFaceClient {
	cfg := newClientConfig(defaultHuggingFaceBaseURL, defaultHuggingFaceModel, opts)
	h := &HuggingFaceClient{
		adapter:    newAdapter(ProviderHuggingFace, formatTagged, cfg),
		apiKey:     apiKey,
		baseURL:    cfg.baseURL,
		model:      cfg.model,
		httpClient: cfg.httpClient,
	}
	h.complete = h.textGeneration
	h.localFeedback = true
	return h
}

// Available reports whether an API token is configured
func (h *HuggingFaceClient) Available(ctx context.Context) bool {
	return h.apiKey != ""
}

// instructionPrompt wraps the prompt in the Mistral instruction template
func instructionPrompt(prompt string) string {
	return fmt.Sprintf("<s>[INST] %s\n\n%s [/INST]", systemPrompt, prompt)
}

func (h *HuggingFaceClient) textGeneration(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := h.model
	if opts.Model != "" {
		model = opts.Model
	}

	return h.makeRequest(ctx, model, &huggingFaceRequest{
		Inputs: instructionPrompt(prompt),
		Parameters: huggingFaceParameters{
			Temperature:    opts.Temperature,
			MaxNewTokens:   opts.MaxTokens,
			TopP:           opts.TopP,
			ReturnFullText: false,
		},
	})
}

// makeRequest sends HTTP request to the inference API
func (h *HuggingFaceClient) makeRequest(ctx context.Context, model string, req *huggingFaceRequest) (string, error) {
	if h.apiKey == "" {
		return "", fmt.Errorf("UNAUTHORIZED: Hugging Face token not configured")
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/models/"+model, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return "", fmt.Errorf("RATE_LIMIT: Hugging Face rate limit exceeded")
		case http.StatusUnauthorized, http.StatusForbidden:
			return "", fmt.Errorf("UNAUTHORIZED: Invalid Hugging Face token")
		case http.StatusServiceUnavailable:
			return "", fmt.Errorf("MODEL_LOADING: Hugging Face model %s is loading", model)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
			return "", fmt.Errorf("SERVICE_ERROR: Hugging Face service temporarily unavailable (status %d)", resp.StatusCode)
		default:
			return "", fmt.Errorf("API_ERROR: Hugging Face request failed with status %d: %s", resp.StatusCode, readErrorBody(body))
		}
	}

	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		var envelope huggingFaceError
		if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Error != "" {
			return "", fmt.Errorf("Hugging Face API error: %s", envelope.Error)
		}
		var single huggingFaceGeneration
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return "", fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return strings.TrimSpace(single.GeneratedText), nil
	}

	var generations []huggingFaceGeneration
	if err := json.Unmarshal(trimmed, &generations); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(generations) == 0 {
		return "", nil
	}
	return strings.TrimSpace(generations[0].GeneratedText), nil
}
