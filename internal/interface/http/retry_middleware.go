package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/meal-planner/internal/infra/config"
)

const retryBodyLimit = 1 << 20 // 1 MiB

var errBodyTooLarge = errors.New("request body exceeds retry limit")

// retryableCodes are failures local to this service. Provider outcomes
// (circuit_open, rate_limited, provider_timeout, provider_error,
// malformed_response) already went through the gateway and are final.
var retryableCodes = map[string]struct{}{
	"storage_error":  {},
	"internal_error": {},
}

type retryPolicy struct {
	attempts int
	backoff  time.Duration
	exclude  map[string]struct{}
	logger   *slog.Logger
}

func withRetry(handler http.Handler, cfg config.RetryConfig, logger *slog.Logger) http.Handler {
	if !cfg.Enabled || cfg.MaxAttempts <= 1 {
		return handler
	}
	p := &retryPolicy{
		attempts: cfg.MaxAttempts,
		backoff:  cfg.BaseBackoff,
		exclude:  make(map[string]struct{}, len(cfg.Exclude)),
		logger:   logger.With("component", "http.retry"),
	}
	for _, path := range cfg.Exclude {
		p.exclude[path] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.applies(r) {
			handler.ServeHTTP(w, r)
			return
		}
		body, err := readRequestBody(r)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, errBodyTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, err.Error(), status)
			return
		}
		p.serve(handler, w, r, body)
	})
}

func (p *retryPolicy) applies(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	_, skip := p.exclude[r.URL.Path]
	return !skip
}

func (p *retryPolicy) serve(handler http.Handler, w http.ResponseWriter, r *http.Request, body []byte) {
	var last *bufferedResponse
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if attempt > 1 && !p.wait(r, attempt) {
			break
		}
		reqCopy := r.Clone(r.Context())
		reqCopy.Body = io.NopCloser(bytes.NewReader(body))
		reqCopy.ContentLength = int64(len(body))

		last = newBufferedResponse()
		handler.ServeHTTP(last, reqCopy)
		code, retry := last.retryable()
		if !retry || attempt == p.attempts {
			break
		}
		p.logger.Warn("transient failure, retrying request", "path", r.URL.Path, "status", last.status, "code", code, "attempt", attempt)
	}
	last.writeTo(w)
}

// wait sleeps for the exponential backoff before attempt and reports false
// when the client went away in the meantime.
func (p *retryPolicy) wait(r *http.Request, attempt int) bool {
	delay := p.backoff * time.Duration(1<<(attempt-2))
	if delay <= 0 {
		return r.Context().Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

func readRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, retryBodyLimit+1))
	if err != nil {
		return nil, err
	}
	if len(data) > retryBodyLimit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// bufferedResponse holds one attempt's response until it is known to be final.
type bufferedResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) { b.status = status }

func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }

func (b *bufferedResponse) Flush() {}

// retryable reads the error code from a 500 body. Anything else, including a
// body that does not carry a code, is final.
func (b *bufferedResponse) retryable() (string, bool) {
	if b.status != http.StatusInternalServerError {
		return "", false
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b.body.Bytes(), &payload); err != nil {
		return "", false
	}
	_, ok := retryableCodes[payload.Error.Code]
	return payload.Error.Code, ok
}

func (b *bufferedResponse) writeTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, values := range b.header {
		dst[k] = append([]string(nil), values...)
	}
	w.WriteHeader(b.status)
	if b.body.Len() > 0 {
		_, _ = w.Write(b.body.Bytes())
	}
}
