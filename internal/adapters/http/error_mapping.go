package httpadapter

import (
	"net/http"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrInvalidChunkConfig),
		domain.IsKind(err, domain.ErrUnknownProvider):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrSettingNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrSettingAlreadyExists):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrRetrievalUnavailable),
		domain.IsKind(err, domain.ErrRerankUnavailable),
		domain.IsKind(err, domain.ErrGenerationUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode gives clients a stable machine-readable discriminator; the
// message text is free to change.
func errorCode(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidChunkConfig):
		return "invalid_chunk_config"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrUnknownProvider):
		return "unknown_provider"
	case domain.IsKind(err, domain.ErrUnauthorized):
		return "unauthorized"
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return "document_not_found"
	case domain.IsKind(err, domain.ErrSettingNotFound):
		return "setting_not_found"
	case domain.IsKind(err, domain.ErrSettingAlreadyExists):
		return "setting_already_exists"
	case domain.IsKind(err, domain.ErrRetrievalUnavailable):
		return "retrieval_unavailable"
	case domain.IsKind(err, domain.ErrRerankUnavailable):
		return "rerank_unavailable"
	case domain.IsKind(err, domain.ErrGenerationUnavailable):
		return "generation_unavailable"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary_failure"
	default:
		return "internal_error"
	}
}
