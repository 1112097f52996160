package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ragulnathMB/tenant-api-gateway/internal/apierrors"
	"github.com/ragulnathMB/tenant-api-gateway/internal/metrics"
)

const (
	DefaultProbeTimeout = 5 * time.Second
	maxProbePayload     = 4 << 10
)

// ProbeResult reports whether a URL answered a HEAD request with 2xx.
type ProbeResult struct {
	Working    bool              `json:"working"`
	StatusCode *int              `json:"statusCode"`
	StatusText *string           `json:"statusText"`
	Headers    map[string]string `json:"headers,omitempty"`
	Message    string            `json:"message,omitempty"`
	// Reason classifies a failure: "status", "timeout" or "transport".
	Reason string `json:"reason,omitempty"`
	// Error is the payload a failing upstream sent back, null when it sent
	// none. HEAD answers normally carry no body.
	Error *string `json:"error"`
}

// Prober issues HEAD requests against arbitrary URLs.
type Prober struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewProber(client *http.Client, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{client: client, timeout: timeout, logger: logger, metrics: m}
}

// Probe never fails for an unreachable or failing target; the outcome is
// reported in the result. Only an empty URL is an error.
func (p *Prober) Probe(ctx context.Context, rawURL string) (*ProbeResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, apierrors.Validation("url is required")
	}

	res := p.probe(ctx, rawURL)
	p.metrics.ObserveProbe(res.Working)
	p.logger.Debug("liveness probe finished",
		zap.String("url", rawURL),
		zap.Bool("working", res.Working),
		zap.String("message", res.Message),
	)
	return res, nil
}

func (p *Prober) probe(ctx context.Context, rawURL string) *ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return &ProbeResult{Message: err.Error(), Reason: "transport"}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		kind := "transport"
		if isTimeout(err) {
			kind = "timeout"
		}
		return &ProbeResult{Message: err.Error(), Reason: kind}
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	text := statusText(resp)
	res := &ProbeResult{StatusCode: &code, StatusText: &text}
	if code >= 200 && code < 300 {
		res.Working = true
		res.Headers = flattenHeaders(resp.Header)
		return res
	}
	res.Message = fmt.Sprintf("request failed with status code %d", code)
	res.Reason = "status"
	if payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbePayload)); len(payload) > 0 {
		s := string(payload)
		res.Error = &s
	}
	return res
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[strings.ToLower(k)] = strings.Join(vs, ", ")
	}
	return out
}
