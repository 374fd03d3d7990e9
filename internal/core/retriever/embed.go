package retriever

import (
	"context"
	"errors"

	"school-api/config"
	"school-api/pkg/logger"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const embedBatchSize = 100

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Embedder turns text into vectors through the OpenAI embeddings endpoint.
type Embedder struct {
	client openai.Client
	model  string
}

func NewEmbedder(cfg config.OpenAIConfig) (*Embedder, error) {
	if cfg.Key == "" {
		return nil, errors.New("missing openai key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Key),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Embedder{
		client: openai.NewClient(opts...),
		model:  cfg.EmbeddingModel,
	}, nil
}

// Embed returns one vector per input, in input order.
func (e *Embedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	all := make([][]float32, 0, len(inputs))
	for i := 0; i < len(inputs); i += embedBatchSize {
		j := min(i+embedBatchSize, len(inputs))

		vectors, err := e.embedBatch(ctx, inputs[i:j])
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"module":      config.ModuleRetriever,
				"model":       e.model,
				"batch_start": i,
				"batch_end":   j,
				"error":       err,
			}).Errorf("openai: embedding batch failed")
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var out embeddingResponse
	if err := e.client.Post(ctx, "/embeddings", embeddingRequest{Model: e.model, Input: batch}, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, errors.New(out.Error.Message)
	}
	if len(out.Data) != len(batch) {
		return nil, errors.New("embedding count does not match input count")
	}

	vectors := make([][]float32, len(batch))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(batch) {
			return nil, errors.New("embedding index out of range")
		}
		vec := make([]float32, len(d.Embedding))
		for k, v := range d.Embedding {
			vec[k] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}
