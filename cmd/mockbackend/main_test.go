package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	h := newRouter()

	tests := []struct {
		method, path, body string
		status             int
		want               string
	}{
		{http.MethodGet, "/api/orders/123", "", http.StatusOK, `{"id":"123","amount":100}`},
		{http.MethodPost, "/api/orders", `{"amount":-1}`, http.StatusUnprocessableEntity, `{"error":"bad input"}`},
		{http.MethodPost, "/api/orders", `{"amount":5}`, http.StatusCreated, `{"id":"generated","amount":5}`},
		{http.MethodGet, "/users/42/orders/7", "", http.StatusOK, `{"userId":"42","orderId":"7"}`},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, tt.path)
		assert.JSONEq(t, tt.want, rec.Body.String(), tt.path)
	}

	// HEAD falls through to the GET handlers
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
