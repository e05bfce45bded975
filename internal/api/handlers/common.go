package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/baechuer/storefront-bff/internal/domain"
	"github.com/baechuer/storefront-bff/internal/logger"
	"github.com/baechuer/storefront-bff/middleware"
)

func sendError(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	resp := domain.APIError{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.RequestID = middleware.GetRequestID(r.Context())

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warn().Err(err).Msg("write_json_failed")
	}
}
