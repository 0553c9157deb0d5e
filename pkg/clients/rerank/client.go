// Package rerank wraps a cross-encoder rerank endpoint. Scores it returns
// are advisory only: they annotate search hits with a rerank_score field
// but never change result order or admission.
package rerank

import (
	"time"

	"github.com/qanoon/halp/pkg/clients/base"
	"github.com/qanoon/halp/pkg/config"
)

const (
	DefaultTimeout = 10 * time.Second
	ServiceName    = "rerank"
)

type Client struct {
	httpClient *base.HTTPClient
	config     config.ServiceConfig
}

func NewClient(cfg config.ServiceConfig) *Client {
	return &Client{httpClient: base.NewHTTPClient(ServiceName, cfg, DefaultTimeout), config: cfg}
}

type Request struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type Result struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type Response struct {
	Model   string   `json:"model"`
	Results []Result `json:"results"`
}

// Rerank scores each document against query. The caller owns ordering: this
// only returns scores keyed by the original document index.
func (c *Client) Rerank(query string, documents []string) (*Response, error) {
	req := Request{Model: c.config.Model, Query: query, Documents: documents}
	var result Response
	if err := c.httpClient.Post("/rerank", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
