package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3"
)

// OllamaClient implements the local Ollama daemon provider.
// Its availability is re-probed before generation calls.
type OllamaClient struct {
	adapter
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	probeTimeout time.Duration

	modelMu sync.RWMutex
	model   string
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// ollamaModelsResponse represents the response from /api/tags
type ollamaModelsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		ModifiedAt string `json:"modified_at"`
		Size       int64  `json:"size"`
	} `json:"models"`
}

// NewOllamaClient creates a new Ollama API client
func NewOllamaClient(baseURL string, opts ...ClientOption) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	opts = append([]ClientOption{WithBaseURL(baseURL)}, opts...)
	cfg := newClientConfig(defaultOllamaBaseURL, defaultOllamaModel, opts)

	o := &OllamaClient{
		adapter:      newAdapter(ProviderOllama, formatTagged, cfg),
		baseURL:      cfg.baseURL,
		httpClient:   cfg.httpClient,
		timeout:      cfg.timeout,
		probeTimeout: cfg.probeTimeout,
		model:        cfg.model,
	}
	o.complete = o.generate
	return o
}

// Volatile marks the daemon for a live probe before each generation call
func (o *OllamaClient) Volatile() bool {
	return true
}

// Model returns the currently selected local model
func (o *OllamaClient) Model() string {
	o.modelMu.RLock()
	defer o.modelMu.RUnlock()
	return o.model
}

// SetModel selects the local model used for subsequent calls. Empty keeps the current one.
func (o *OllamaClient) SetModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	o.modelMu.Lock()
	o.model = model
	o.modelMu.Unlock()
	o.logger.Info("local model selected", zap.String("model", model))
}

// Available probes GET /api/tags within the probe timeout. Failures of any
// kind report false.
func (o *OllamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// ListModels fetches the list of installed models from Ollama
func (o *OllamaClient) ListModels(ctx context.Context) ([]LocalModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch models: status %d", resp.StatusCode)
	}

	var modelsResp ollamaModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}

	models := make([]LocalModel, len(modelsResp.Models))
	for i, m := range modelsResp.Models {
		models[i] = LocalModel{Name: m.Name, Size: m.Size, ModifiedAt: m.ModifiedAt}
	}
	return models, nil
}

func (o *OllamaClient) generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := o.Model()
	if opts.Model != "" {
		model = opts.Model
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.makeRequest(ctx, &ollamaRequest{
		Model:  model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
			TopP:        opts.TopP,
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// makeRequest sends HTTP request to Ollama API
func (o *OllamaClient) makeRequest(ctx context.Context, req *ollamaRequest) (*ollamaResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama server at %s: %w", o.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil, fmt.Errorf("MODEL_NOT_FOUND: Model '%s' not installed. Run: ollama pull %s", req.Model, req.Model)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, fmt.Errorf("SERVICE_ERROR: Ollama server error (status %d)", resp.StatusCode)
		default:
			return nil, fmt.Errorf("API_ERROR: Ollama request failed with status %d: %s", resp.StatusCode, readErrorBody(body))
		}
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if ollamaResp.Error != "" {
		return nil, fmt.Errorf("Ollama API error: %s", ollamaResp.Error)
	}

	return &ollamaResp, nil
}
