package httpadapter

import (
	"net/http"

	"github.com/greenvolt/docverify/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound), domain.IsKind(err, domain.ErrErrorNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrUpstream), domain.IsKind(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	payload := map[string]any{"error": err.Error()}
	if domain.Retryable(err) {
		payload["retryable"] = true
	}
	writeJSON(w, mapErrorToHTTPStatus(err), payload)
}
