package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEncoder embeds texts with any OpenAI-compatible /embeddings endpoint
// (OpenAI, Ollama, vLLM, LM Studio, ...).
type OpenAIEncoder struct {
	client    openai.Client
	model     string
	dim       int
	batchSize int
}

// NewOpenAIEncoder creates an OpenAI-compatible encoder. A self-hosted
// endpoint may run without an API key.
func NewOpenAIEncoder(apiKey, baseURL, model string, dim, batchSize int) (*OpenAIEncoder, error) {
	if apiKey == "" && baseURL == "" {
		return nil, errors.New("openai: API key or base URL is required")
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dim <= 0 {
		dim = DefaultOpenAIDimension
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		// Retries are handled by Resilient.
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &OpenAIEncoder{
		client:    openai.NewClient(opts...),
		model:     model,
		dim:       dim,
		batchSize: batchSize,
	}, nil
}

// Encode implements Encoder.
func (e *OpenAIEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
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

func (e *OpenAIEncoder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dim)),
	})
	if err != nil {
		return nil, WrapError(err, ProviderOpenAI, openaiStatus(err))
	}
	if len(resp.Data) != len(texts) {
		return nil, WrapError(fmt.Errorf("openai: got %d embeddings for %d texts", len(resp.Data), len(texts)), ProviderOpenAI, 0)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) || len(d.Embedding) != e.dim {
			return nil, WrapError(fmt.Errorf("openai: malformed embedding at index %d", d.Index), ProviderOpenAI, 0)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = normalizeVector(vec)
	}
	for i, v := range out {
		if v == nil {
			return nil, WrapError(fmt.Errorf("openai: missing embedding %d", i), ProviderOpenAI, 0)
		}
	}
	return out, nil
}

func openaiStatus(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Dimension implements Encoder.
func (e *OpenAIEncoder) Dimension() int { return e.dim }

// Name implements Encoder.
func (e *OpenAIEncoder) Name() string { return "openai/" + e.model }

// Provider implements Encoder.
func (e *OpenAIEncoder) Provider() Provider { return ProviderOpenAI }
