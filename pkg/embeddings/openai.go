package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIEmbeddings implements EmbeddingService against an
// OpenAI-compatible embeddings endpoint.
type OpenAIEmbeddings struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
}

type openAIRequest struct {
	Input      any    `json:"input"`
	Model      string `json:"model"`
	Dimensions *int   `json:"dimensions,omitempty"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func init() {
	Register("openai", NewOpenAI)
}

// NewOpenAI creates a new OpenAIEmbeddings instance.
func NewOpenAI(config Config) (EmbeddingService, error) {
	if config.OpenAI == nil {
		return nil, fmt.Errorf("openai configuration is required")
	}
	if err := config.OpenAI.Validate(); err != nil {
		return nil, err
	}

	dims := modelDimensions(config.OpenAI.Model)
	if config.OpenAI.Dimensions > 0 {
		// Custom dimensions are only supported by text-embedding-3 models.
		if !isTextEmbedding3Model(config.OpenAI.Model) {
			return nil, fmt.Errorf("custom dimensions only supported for text-embedding-3 models, got model: %s", config.OpenAI.Model)
		}
		dims = config.OpenAI.Dimensions
	}

	return &OpenAIEmbeddings{
		apiKey:     config.OpenAI.APIKey,
		model:      config.OpenAI.Model,
		baseURL:    config.OpenAI.BaseURL,
		dimensions: dims,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Embed generates an embedding for a single text.
func (o *OpenAIEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	embeddings, err := o.makeRequest(ctx, openAIRequest{Input: text, Model: o.model})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, order preserved.
func (o *OpenAIEmbeddings) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	return o.makeRequest(ctx, openAIRequest{Input: texts, Model: o.model})
}

// Dimensions returns the dimension size of the embeddings.
func (o *OpenAIEmbeddings) Dimensions() int {
	return o.dimensions
}

// ModelName returns the name of the embedding model.
func (o *OpenAIEmbeddings) ModelName() string {
	return o.model
}

// Close closes any resources held by the service.
func (o *OpenAIEmbeddings) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

func (o *OpenAIEmbeddings) makeRequest(ctx context.Context, reqBody openAIRequest) ([][]float32, error) {
	if isTextEmbedding3Model(o.model) && o.dimensions > 0 && o.dimensions != modelDimensions(o.model) {
		reqBody.Dimensions = &o.dimensions
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/embeddings", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return nil, fmt.Errorf("embeddings API error: %s", errorResp.Error.Message)
		}
		return nil, fmt.Errorf("embeddings API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned from API")
	}

	// Reassemble by the index field so the output order matches the
	// input order regardless of response ordering.
	embeddings := make([][]float32, len(apiResp.Data))
	seen := make(map[int]bool, len(apiResp.Data))
	for i, item := range apiResp.Data {
		if item.Embedding == nil {
			return nil, fmt.Errorf("embedding at response index %d is nil", i)
		}
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index out of bounds: %d", item.Index)
		}
		if seen[item.Index] {
			return nil, fmt.Errorf("duplicate embedding index: %d", item.Index)
		}
		seen[item.Index] = true
		embeddings[item.Index] = item.Embedding
	}
	for i := range embeddings {
		if !seen[i] {
			return nil, fmt.Errorf("missing embedding at index %d", i)
		}
	}

	return embeddings, nil
}

func modelDimensions(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		// ada-002, 3-small and unknown models default to 1536.
		return 1536
	}
}

// isTextEmbedding3Model reports whether the model supports custom
// dimensions.
func isTextEmbedding3Model(model string) bool {
	return model == "text-embedding-3-small" || model == "text-embedding-3-large"
}
