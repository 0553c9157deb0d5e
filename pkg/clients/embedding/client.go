// Package embedding implements an HTTP client plus the preprocessing,
// batching, caching, and failure-isolation contract for embedding calls.
package embedding

import (
	"time"

	"github.com/qanoon/halp/pkg/clients/base"
	"github.com/qanoon/halp/pkg/config"
)

const (
	DefaultTimeout = 30 * time.Second
	ServiceName    = "embedding"
)

// RawEmbedder is the low-level HTTP contract to the external embedding
// model. The service layer (Service) implements the
// embed/embed_query/similarity contract on top of this.
type RawEmbedder interface {
	CreateBatchEmbedding(model string, texts []string) (*Response, error)
}

type Client struct {
	httpClient *base.HTTPClient
	config     config.ServiceConfig
}

var _ RawEmbedder = (*Client)(nil)

func NewClient(cfg config.ServiceConfig) *Client {
	return &Client{httpClient: base.NewHTTPClient(ServiceName, cfg, DefaultTimeout), config: cfg}
}

type Request struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type Data struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type Response struct {
	Object string `json:"object"`
	Model  string `json:"model"`
	Data   []Data `json:"data"`
	Usage  Usage  `json:"usage"`
}

func (c *Client) CreateBatchEmbedding(model string, texts []string) (*Response, error) {
	req := Request{Model: model, Input: texts, EncodingFormat: "float"}
	var result Response
	if err := c.httpClient.Post("/embeddings", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Arabic-capable reference models (multilingual sentence-transformers).
const (
	ModelBGEM3          = "BAAI/bge-m3"
	ModelBGELargeArAr    = "Omartificial-Intelligence-Space/Arabic-Triplet-Matryoshka-V2"
	ModelMultilingualE5  = "intfloat/multilingual-e5-large"
)

// GetDefaultDimension returns D for a known reference model; unknown models
// get 768. Callers use it only when the config declares no vector_dim.
func GetDefaultDimension(model string) int {
	switch model {
	case ModelBGEM3:
		return 1024
	case ModelBGELargeArAr:
		return 768
	case ModelMultilingualE5:
		return 1024
	default:
		return 768
	}
}
