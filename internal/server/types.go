// Package server exposes the HTTP surface (the four search routes plus
// ingest_document) as gin handlers, wired together with go.uber.org/fx.
package server

import (
	"go.uber.org/zap"

	"github.com/qanoon/halp/pkg/config"
	"github.com/qanoon/halp/pkg/ingest"
	"github.com/qanoon/halp/pkg/search"
)

// Server holds the two domain services every handler needs.
type Server struct {
	Search *search.Service
	Ingest *ingest.Coordinator
	Config *config.Config
	Log    *zap.Logger
}

func NewServer(searchSvc *search.Service, coordinator *ingest.Coordinator, cfg *config.Config, log *zap.Logger) *Server {
	return &Server{Search: searchSvc, Ingest: coordinator, Config: cfg, Log: log}
}
