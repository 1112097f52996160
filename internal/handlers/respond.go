package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ragulnathMB/tenant-api-gateway/internal/apierrors"
)

type errorBody struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type successBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, successBody{Success: true, Message: message, Data: data})
}

// writeError maps err to its status and logs it with the request id: warn
// for 4xx, error for 5xx.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	e, ok := apierrors.As(err)
	if !ok {
		e = apierrors.Internal(err, "internal error")
	}
	status := e.HTTPStatus()

	fields := []zap.Field{
		zap.String("request_id", r.Header.Get("X-Request-ID")),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", e.Kind.String()),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request rejected", fields...)
	}

	msg := e.Message
	if e.Kind == apierrors.KindTransportFailure {
		msg = e.Error()
	}
	writeJSON(w, status, errorBody{Error: msg, Code: e.Kind.String(), Details: e.Details})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apierrors.Validation("invalid json: %v", err)
	}
	return nil
}
