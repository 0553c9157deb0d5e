package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qanoon/halp/pkg/coreerr"
)

// statusForKind maps a coreerr Kind to an HTTP status code.
func statusForKind(kind coreerr.Kind) int {
	switch kind {
	case coreerr.KindInvalidInput:
		return http.StatusBadRequest
	case coreerr.KindDuplicateDocument:
		return http.StatusConflict
	case coreerr.KindNotFound:
		return http.StatusNotFound
	case coreerr.KindTimeout:
		return http.StatusGatewayTimeout
	case coreerr.KindCancelled:
		return http.StatusRequestTimeout
	case coreerr.KindNoArticlesExtracted, coreerr.KindDimensionMismatch:
		return http.StatusUnprocessableEntity
	case coreerr.KindEmbeddingFailed, coreerr.KindVectorWriteFailed, coreerr.KindRelationalWriteFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code via its coreerr.Kind (when present)
// and writes the standard error envelope.
func writeError(c *gin.Context, err error) {
	kind, ok := coreerr.Of(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(statusForKind(kind), ErrorResponse{Error: err.Error(), Kind: string(kind)})
}
