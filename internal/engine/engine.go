// Package engine resolves catalog entries into upstream calls and relays the
// result: path rewriting, method reconciliation, dispatch and liveness probes.
package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ragulnathMB/tenant-api-gateway/internal/apierrors"
	"github.com/ragulnathMB/tenant-api-gateway/internal/metrics"
	"github.com/ragulnathMB/tenant-api-gateway/internal/store"
)

const (
	DefaultForwardTimeout   = 10 * time.Second
	DefaultMaxResponseBytes = 10 << 20
)

// Resolver looks up the catalog entry for a forward.
type Resolver interface {
	Lookup(ctx context.Context, tenantID, section, apiName string) (store.Entry, error)
}

// Request is one inbound gateway call.
type Request struct {
	// Method is the caller's hint; the catalog method is used for dispatch.
	Method       string
	TenantID     string
	Section      string
	APIName      string
	PathSegments []string
	Query        url.Values
	Body         []byte
	ContentType  string
}

// Response is the upstream answer, relayed verbatim.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Method     string
	URL        string
}

type ForwarderConfig struct {
	Timeout time.Duration
	// DefaultBackendURL is joined in front of templates that carry no host.
	DefaultBackendURL string
	MaxResponseBytes  int64
}

// Forwarder runs RESOLVE -> REWRITE -> RECONCILE -> DISPATCH for each
// request. It keeps no per-request state and performs a single dispatch
// attempt.
type Forwarder struct {
	resolver Resolver
	client   *http.Client
	baseURL  *url.URL
	cfg      ForwarderConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewHTTPClient returns the client shared by the forwarder and the prober.
// Deadlines come from request contexts, not from the client.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func NewForwarder(resolver Resolver, client *http.Client, cfg ForwarderConfig, logger *zap.Logger, m *metrics.Metrics) (*Forwarder, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultForwardTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	f := &Forwarder{resolver: resolver, client: client, cfg: cfg, logger: logger, metrics: m}
	if cfg.DefaultBackendURL != "" {
		u, err := url.Parse(cfg.DefaultBackendURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("default backend url must be absolute")
		}
		f.baseURL = u
	}
	return f, nil
}

// Forward resolves and dispatches req. Any upstream status is a successful
// relay; errors are *apierrors.Error values.
func (f *Forwarder) Forward(ctx context.Context, req *Request) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		f.metrics.ObserveForward(err, time.Since(start))
	}()

	log := f.logger.With(
		zap.String("tenant_id", req.TenantID),
		zap.String("section", req.Section),
		zap.String("api_name", req.APIName),
	)

	entry, err := f.resolver.Lookup(ctx, req.TenantID, req.Section, req.APIName)
	if err != nil {
		return nil, err
	}

	resolved, err := ResolvePath(entry.URL, req.PathSegments)
	if err != nil {
		return nil, err
	}
	if len(resolved.Unused) > 0 {
		log.Warn("extra path segments ignored",
			zap.Strings("unused", resolved.Unused),
			zap.String("url_template", entry.URL),
		)
	}

	target, err := f.absolute(resolved.URL)
	if err != nil {
		return nil, err
	}
	mergeQuery(target, req.Query)

	method, overridden := ReconcileMethod(req.Method, entry.Method)
	if overridden {
		log.Warn("inbound method overridden by catalog",
			zap.String("inbound_method", req.Method),
			zap.String("catalog_method", method),
		)
	}

	return f.dispatch(ctx, log, method, target, req)
}

func (f *Forwarder) dispatch(ctx context.Context, log *zap.Logger, method string, target *url.URL, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	targetURL := target.String()
	httpReq, err := http.NewRequestWithContext(ctx, method, targetURL, body)
	if err != nil {
		return nil, apierrors.TransportFailure(err, "failed to build upstream request").
			WithDetail("url", targetURL)
	}
	if body != nil {
		ct := req.ContentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}

	log.Debug("forwarding to backend", zap.String("method", method), zap.String("url", targetURL))

	upstream, err := f.client.Do(httpReq)
	if err != nil {
		e := apierrors.TransportFailure(err, "upstream request failed").
			WithDetail("url", targetURL)
		if isTimeout(err) {
			e.WithDetail("timeout", true)
		}
		log.Error("upstream request failed", zap.String("url", targetURL), zap.Error(err))
		return nil, e
	}
	defer upstream.Body.Close()

	data, err := io.ReadAll(io.LimitReader(upstream.Body, f.cfg.MaxResponseBytes+1))
	if err != nil {
		e := apierrors.TransportFailure(err, "failed to read upstream response").
			WithDetail("url", targetURL).
			WithDetail("upstreamStatus", upstream.StatusCode)
		if len(data) > 0 {
			e.WithDetail("upstreamBody", string(data))
		}
		if upstream.StatusCode >= http.StatusBadRequest {
			e.Status = upstream.StatusCode
		}
		log.Error("failed to read upstream response", zap.String("url", targetURL), zap.Error(err))
		return nil, e
	}
	if int64(len(data)) > f.cfg.MaxResponseBytes {
		log.Error("upstream response too large", zap.String("url", targetURL), zap.Int64("limit", f.cfg.MaxResponseBytes))
		return nil, apierrors.TransportFailure(nil, "upstream response exceeds %d bytes", f.cfg.MaxResponseBytes).
			WithDetail("url", targetURL).
			WithDetail("upstreamStatus", upstream.StatusCode)
	}

	return &Response{
		StatusCode: upstream.StatusCode,
		Header:     upstream.Header.Clone(),
		Body:       data,
		Method:     method,
		URL:        targetURL,
	}, nil
}

// absolute joins host-less templates onto the default backend.
func (f *Forwarder) absolute(u *url.URL) (*url.URL, error) {
	if u.Scheme != "" && u.Host != "" {
		return u, nil
	}
	if f.baseURL == nil {
		return nil, apierrors.TransportFailure(nil, "url %q has no host and no default backend is configured", u.String())
	}
	out := *f.baseURL
	out.Path = strings.TrimRight(f.baseURL.Path, "/") + u.Path
	out.RawPath = strings.TrimRight(f.baseURL.EscapedPath(), "/") + u.EscapedPath()
	out.RawQuery = u.RawQuery
	out.Fragment = ""
	return &out, nil
}

// mergeQuery adds the inbound query to the template's; inbound keys win.
func mergeQuery(u *url.URL, inbound url.Values) {
	if len(inbound) == 0 {
		return
	}
	q := u.Query()
	for k, vs := range inbound {
		q[k] = append([]string(nil), vs...)
	}
	u.RawQuery = q.Encode()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
