// Package gateway wraps the chat completion provider with a bounded timeout,
// rate-limit classification and a shared cooldown.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/yanqian/meal-planner/internal/infra/llm/chatgpt"
	"github.com/yanqian/meal-planner/pkg/metrics"
)

const (
	defaultCooldown = 120 * time.Second
	defaultTimeout  = 30 * time.Second
)

var rateLimitPattern = regexp.MustCompile(`(?i)rate.?limit|too many requests|quota|resource.?exhausted`)

// ChatClient is the network layer the gateway guards.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// Config contains gateway tunables.
type Config struct {
	Model       string
	Temperature float32
	Cooldown    time.Duration
}

// Request describes one completion.
type Request struct {
	Operation string
	Messages  []chatgpt.Message
	// JSON asks the provider for a single JSON object.
	JSON bool
}

// Response is the raw provider answer.
type Response struct {
	Content string
	Usage   metrics.TokenUsage
	Latency time.Duration
}

// Snapshot describes the breaker for status endpoints.
type Snapshot struct {
	Open              bool      `json:"open"`
	BlockedUntil      time.Time `json:"blockedUntil,omitempty"`
	RetryAfterSeconds int       `json:"retryAfterSeconds"`
}

type statusCoder interface {
	HTTPStatus() int
}

type callResult struct {
	resp chatgpt.ChatCompletionResponse
	err  error
}

// Gateway guards a ChatClient. Each call runs on its own goroutine; only the
// breaker is shared between callers.
type Gateway struct {
	cfg     Config
	client  ChatClient
	breaker *CircuitBreakerState
	logger  *slog.Logger
}

// New wires a gateway.
func New(cfg Config, client ChatClient, breaker *CircuitBreakerState, logger *slog.Logger) *Gateway {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if breaker == nil {
		breaker = NewCircuitBreakerState()
	}
	return &Gateway{
		cfg:     cfg,
		client:  client,
		breaker: breaker,
		logger:  logger.With("component", "llm.gateway"),
	}
}

// Call issues one completion bounded by timeout. Failures are *Error values.
func (g *Gateway) Call(ctx context.Context, req Request, timeout time.Duration) (Response, error) {
	if remaining, ok := g.breaker.Allow(); !ok {
		return Response{}, &Error{Kind: KindCircuitOpen, Status: http.StatusServiceUnavailable, RetryAfter: remaining, Err: ErrCircuitOpen}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	chatReq := chatgpt.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    req.Messages,
		Temperature: g.cfg.Temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = chatgpt.JSONObjectFormat
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	results := make(chan callResult, 1)
	started := g.breaker.Now()
	go func() {
		defer cancel()
		resp, err := g.client.CreateChatCompletion(callCtx, chatReq)
		results <- callResult{resp: resp, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		latency := g.breaker.Now().Sub(started)
		if res.err != nil {
			gwErr := g.classify(res.err)
			g.logger.Debug("provider call failed", "operation", req.Operation, "kind", gwErr.Kind, "latency_ms", latency.Milliseconds(), "error", res.err)
			return Response{}, gwErr
		}
		if len(res.resp.Choices) == 0 {
			return Response{}, &Error{Kind: KindProviderError, Err: errors.New("provider returned no choices")}
		}
		g.logger.Debug("provider call completed", "operation", req.Operation, "latency_ms", latency.Milliseconds())
		return Response{
			Content: res.resp.Choices[0].Message.Content,
			Usage: metrics.TokenUsage{
				PromptTokens:     res.resp.Usage.PromptTokens,
				CompletionTokens: res.resp.Usage.CompletionTokens,
				TotalTokens:      res.resp.Usage.TotalTokens,
			},
			Latency: latency,
		}, nil
	case <-timer.C:
		g.logger.Warn("provider call abandoned after timeout", "operation", req.Operation, "timeout_ms", timeout.Milliseconds())
		return Response{}, &Error{Kind: KindProviderTimeout, Status: http.StatusGatewayTimeout, Err: ErrTimeout}
	case <-ctx.Done():
		g.logger.Debug("caller cancelled provider call", "operation", req.Operation, "error", ctx.Err())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Response{}, &Error{Kind: KindProviderTimeout, Status: http.StatusGatewayTimeout, Err: ctx.Err()}
		}
		return Response{}, &Error{Kind: KindProviderError, Err: ctx.Err()}
	}
}

// Status returns the breaker snapshot.
func (g *Gateway) Status() Snapshot {
	remaining, ok := g.breaker.Allow()
	return Snapshot{
		Open:              !ok,
		BlockedUntil:      g.breaker.BlockedUntil(),
		RetryAfterSeconds: RetryAfterSeconds(remaining),
	}
}

func (g *Gateway) classify(err error) *Error {
	status := 0
	var coded statusCoder
	if errors.As(err, &coded) {
		status = coded.HTTPStatus()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindProviderTimeout, Status: http.StatusGatewayTimeout, Err: ErrTimeout}
	}
	if status == http.StatusTooManyRequests || rateLimitPattern.MatchString(err.Error()) {
		until := g.breaker.Trip(g.cfg.Cooldown)
		g.logger.Warn("provider rate limited, cooldown extended", "blocked_until", until.UTC().Format(time.RFC3339), "status", status)
		return &Error{
			Kind:       KindRateLimited,
			Status:     status,
			RetryAfter: until.Sub(g.breaker.Now()),
			Err:        err,
		}
	}
	return &Error{Kind: KindProviderError, Status: status, Err: err}
}
