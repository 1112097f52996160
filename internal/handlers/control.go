package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ragulnathMB/tenant-api-gateway/internal/auth"
	"github.com/ragulnathMB/tenant-api-gateway/internal/catalog"
	"github.com/ragulnathMB/tenant-api-gateway/internal/engine"
	"github.com/ragulnathMB/tenant-api-gateway/internal/store"
)

type CatalogService interface {
	List(ctx context.Context, tenantID string) (store.Catalog, error)
	Add(ctx context.Context, tenantID string, req catalog.AddRequest) (store.Entry, error)
	Update(ctx context.Context, tenantID, section, apiName string, req catalog.UpdateRequest) (store.Entry, error)
	Delete(ctx context.Context, tenantID, section, apiName string) error
}

type Prober interface {
	Probe(ctx context.Context, rawURL string) (*engine.ProbeResult, error)
}

// entryView is the management representation of one catalog entry.
type entryView struct {
	Section string `json:"section"`
	APIName string `json:"apiName"`
	URL     string `json:"url"`
	Method  string `json:"method"`
}

// auditLog records a successful catalog mutation with the admin subject when
// the caller authenticated with a JWT.
func auditLog(logger *zap.Logger, r *http.Request, msg, section, apiName string) {
	fields := []zap.Field{
		zap.String("request_id", r.Header.Get("X-Request-ID")),
		zap.String("tenant_id", chi.URLParam(r, "tenantID")),
		zap.String("section", section),
		zap.String("api_name", apiName),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		if sub, _ := claims["sub"].(string); sub != "" {
			fields = append(fields, zap.String("admin_sub", sub))
		}
	}
	logger.Info(msg, fields...)
}

func ListAPIsHandler(s CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.List(r.Context(), chi.URLParam(r, "tenantID"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeSuccess(w, http.StatusOK, "APIs retrieved", c)
	}
}

func AddAPIHandler(s CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalog.AddRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		e, err := s.Add(r.Context(), chi.URLParam(r, "tenantID"), req)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		view := entryView{
			Section: strings.TrimSpace(req.Section),
			APIName: strings.TrimSpace(req.APIName),
			URL:     e.URL,
			Method:  e.Method,
		}
		auditLog(logger, r, "catalog entry added", view.Section, view.APIName)
		writeSuccess(w, http.StatusCreated, "API added", view)
	}
}

func UpdateAPIHandler(s CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalog.UpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		section := chi.URLParam(r, "section")
		apiName := chi.URLParam(r, "apiName")
		e, err := s.Update(r.Context(), chi.URLParam(r, "tenantID"), section, apiName, req)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		auditLog(logger, r, "catalog entry updated", section, apiName)
		if req.NewAPIName != nil {
			apiName = strings.TrimSpace(*req.NewAPIName)
		}
		writeSuccess(w, http.StatusOK, "API updated", entryView{
			Section: section,
			APIName: apiName,
			URL:     e.URL,
			Method:  e.Method,
		})
	}
}

func DeleteAPIHandler(s CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section := chi.URLParam(r, "section")
		apiName := chi.URLParam(r, "apiName")
		if err := s.Delete(r.Context(), chi.URLParam(r, "tenantID"), section, apiName); err != nil {
			writeError(w, r, logger, err)
			return
		}
		auditLog(logger, r, "catalog entry deleted", section, apiName)
		writeSuccess(w, http.StatusOK, "API deleted", map[string]string{
			"section": section,
			"apiName": apiName,
		})
	}
}

// CheckAPIHandler probes {url} with a HEAD request. An unreachable target is
// a successful check that reports working=false.
func CheckAPIHandler(p Prober, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			URL string `json:"url"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, r, logger, err)
			return
		}
		res, err := p.Probe(r.Context(), payload.URL)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		msg := "API is reachable"
		if !res.Working {
			msg = "API is not reachable"
		}
		writeSuccess(w, http.StatusOK, msg, res)
	}
}
