package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tjfontaine/uda/internal/assistant"
	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
	"github.com/tjfontaine/uda/internal/pipeline"
)

type errorBody struct {
	Error *domain.APIError `json:"error"`
}

// toAPIError classifies err for the response body.
func toAPIError(err error) *domain.APIError {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrTimeout("request deadline exceeded")
	case errors.Is(err, ports.ErrRunNotFound):
		return domain.ErrNotFound(err.Error()).WithCode(domain.ErrorCodeRunNotFound)
	}

	var esc *assistant.EscalationError
	if errors.As(err, &esc) {
		return domain.ErrServer(err.Error()).WithCode(domain.ErrorCodeEscalationFailed)
	}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		return domain.ErrServer(err.Error()).WithCode(domain.ErrorCodeStageFailed)
	}
	return domain.ErrServer(err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	AddError(r.Context(), err)
	writeJSON(w, apiErr.HTTPStatusCode(), errorBody{Error: apiErr})
}
