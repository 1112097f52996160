package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ragulnathMB/tenant-api-gateway/internal/apierrors"
	"github.com/ragulnathMB/tenant-api-gateway/internal/engine"
)

const (
	// TenantHeader names the tenant on /proxy routes.
	TenantHeader = "X-Tenant-ID"
	// MethodHeader carries the caller's method hint.
	MethodHeader = "X-Method"
)

type Forwarder interface {
	Forward(ctx context.Context, req *engine.Request) (*engine.Response, error)
}

// ForwardHandler relays a request to the backend registered for
// {section}/{apiName}. The tenant comes from the {tenantID} URL parameter
// or, on routes without it, from the X-Tenant-ID header. Whatever follows
// the API name becomes the positional path segments.
func ForwardHandler(f Forwarder, maxBodyBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")
		if tenantID == "" {
			tenantID = strings.TrimSpace(r.Header.Get(TenantHeader))
		}
		if tenantID == "" {
			writeError(w, r, logger, apierrors.Validation("%s header is required", TenantHeader))
			return
		}

		body, err := readBody(w, r, maxBodyBytes)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		method := r.Header.Get(MethodHeader)
		if method == "" {
			method = r.Method
		}

		resp, err := f.Forward(r.Context(), &engine.Request{
			Method:       method,
			TenantID:     tenantID,
			Section:      chi.URLParam(r, "section"),
			APIName:      chi.URLParam(r, "apiName"),
			PathSegments: splitSegments(chi.URLParam(r, "*"), r.URL.RawPath != ""),
			Query:        r.URL.Query(),
			Body:         body,
			ContentType:  r.Header.Get("Content-Type"),
		})
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(resp.Body)
	}
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	var rd io.Reader = r.Body
	if limit > 0 {
		rd = http.MaxBytesReader(w, r.Body, limit)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			e := apierrors.Validation("request body exceeds %d bytes", tooLarge.Limit)
			e.Status = http.StatusRequestEntityTooLarge
			return nil, e
		}
		return nil, apierrors.Validation("failed to read request body: %v", err)
	}
	return b, nil
}

// splitSegments splits the wildcard remainder on "/". chi matches on the
// raw path only when the request carried one, so escaped is true exactly when
// rest still needs decoding; an encoded slash then stays inside its segment.
func splitSegments(rest string, escaped bool) []string {
	var out []string
	for _, seg := range strings.Split(rest, "/") {
		if seg == "" {
			continue
		}
		if escaped {
			if dec, err := url.PathUnescape(seg); err == nil {
				seg = dec
			}
		}
		out = append(out, seg)
	}
	return out
}
