package genai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiEncoder embeds texts with the Gemini embedding API.
type GeminiEncoder struct {
	client    *genai.Client
	model     string
	dim       int
	batchSize int
}

// NewGeminiEncoder creates a Gemini encoder. Empty model and non-positive
// dim or batchSize fall back to the package defaults.
func NewGeminiEncoder(ctx context.Context, apiKey, model string, dim, batchSize int) (*GeminiEncoder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if dim <= 0 {
		dim = DefaultGeminiDimension
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiEncoder{client: client, model: model, dim: dim, batchSize: batchSize}, nil
}

// Encode implements Encoder.
func (e *GeminiEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *GeminiEncoder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	dim := int32(e.dim) //nolint:gosec // bounded by config validation
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
		TaskType:             "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, WrapError(err, ProviderGemini, geminiStatus(err))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, WrapError(fmt.Errorf("gemini: got %d embeddings for %d texts", len(resp.Embeddings), len(texts)), ProviderGemini, 0)
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.dim {
			return nil, WrapError(fmt.Errorf("gemini: embedding %d has wrong dimension", i), ProviderGemini, 0)
		}
		out[i] = normalizeVector(emb.Values)
	}
	return out, nil
}

func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// Dimension implements Encoder.
func (e *GeminiEncoder) Dimension() int { return e.dim }

// Name implements Encoder.
func (e *GeminiEncoder) Name() string { return "gemini/" + e.model }

// Provider implements Encoder.
func (e *GeminiEncoder) Provider() Provider { return ProviderGemini }
