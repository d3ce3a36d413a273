package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/meal-planner/internal/infra/llm/chatgpt"
)

type stubChatClient struct {
	responses []string
	err       error
	delay     time.Duration
	calls     atomic.Int32
}

func (s *stubChatClient) CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	idx := int(s.calls.Add(1)) - 1
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return chatgpt.ChatCompletionResponse{}, ctx.Err()
		}
	}
	if s.err != nil {
		return chatgpt.ChatCompletionResponse{}, s.err
	}
	var resp chatgpt.ChatCompletionResponse
	content := ""
	if idx < len(s.responses) {
		content = s.responses[idx]
	}
	resp.Choices = append(resp.Choices, struct {
		Message      chatgpt.Message `json:"message"`
		FinishReason string          `json:"finish_reason"`
	}{Message: chatgpt.Message{Role: "assistant", Content: content}})
	resp.Usage = chatgpt.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}
	return resp, nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestGateway(client ChatClient, breaker *CircuitBreakerState) *Gateway {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{Model: "test-model", Cooldown: 120 * time.Second}, client, breaker, logger)
}

func TestCallReturnsContent(t *testing.T) {
	client := &stubChatClient{responses: []string{`{"ok":true}`}}
	gw := newTestGateway(client, NewCircuitBreakerState())

	resp, err := gw.Call(context.Background(), Request{Operation: "test", JSON: true}, time.Second)
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, resp.Content)
	require.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestCallTimesOut(t *testing.T) {
	client := &stubChatClient{delay: time.Second}
	gw := newTestGateway(client, NewCircuitBreakerState())

	start := time.Now()
	_, err := gw.Call(context.Background(), Request{}, 20*time.Millisecond)
	require.Error(t, err)
	require.Equal(t, KindProviderTimeout, KindOf(err))
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRateLimitStatusTripsBreaker(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	breaker := NewCircuitBreakerStateWithClock(clock.Now)
	client := &stubChatClient{err: &chatgpt.APIError{StatusCode: http.StatusTooManyRequests, Body: "{}"}}
	gw := newTestGateway(client, breaker)

	_, err := gw.Call(context.Background(), Request{}, time.Second)
	require.Equal(t, KindRateLimited, KindOf(err))
	require.Equal(t, 120*time.Second, RetryAfter(err))
	require.Equal(t, clock.Now().Add(120*time.Second), breaker.BlockedUntil())
}

func TestRateLimitMessagePatternTripsBreaker(t *testing.T) {
	for _, msg := range []string{"Rate limit reached", "429 Too Many Requests", "insufficient_quota", "RESOURCE_EXHAUSTED"} {
		breaker := NewCircuitBreakerState()
		gw := newTestGateway(&stubChatClient{err: errors.New(msg)}, breaker)

		_, err := gw.Call(context.Background(), Request{}, time.Second)
		require.Equal(t, KindRateLimited, KindOf(err), msg)
		_, ok := breaker.Allow()
		require.False(t, ok, msg)
	}
}

func TestCircuitOpenNeverReachesNetwork(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	breaker := NewCircuitBreakerStateWithClock(clock.Now)
	breaker.Trip(90 * time.Second)
	client := &stubChatClient{responses: []string{"unused"}}
	gw := newTestGateway(client, breaker)

	clock.Advance(500 * time.Millisecond)
	_, err := gw.Call(context.Background(), Request{}, time.Second)
	require.Equal(t, KindCircuitOpen, KindOf(err))
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.Equal(t, 90, RetryAfterSeconds(RetryAfter(err)))
	require.Equal(t, int32(0), client.calls.Load())

	clock.Advance(90 * time.Second)
	_, err = gw.Call(context.Background(), Request{}, time.Second)
	require.NoError(t, err)
	require.Equal(t, int32(1), client.calls.Load())
}

func TestProviderErrorKeepsStatus(t *testing.T) {
	gw := newTestGateway(&stubChatClient{err: &chatgpt.APIError{StatusCode: http.StatusBadGateway, Body: "upstream"}}, NewCircuitBreakerState())

	_, err := gw.Call(context.Background(), Request{}, time.Second)
	require.Equal(t, KindProviderError, KindOf(err))
	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	require.Equal(t, http.StatusBadGateway, gwErr.Status)

	var apiErr *chatgpt.APIError
	require.True(t, errors.As(err, &apiErr))
}

func TestBreakerIsMonotonic(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	breaker := NewCircuitBreakerStateWithClock(clock.Now)

	first := breaker.Trip(120 * time.Second)
	clock.Advance(10 * time.Second)
	second := breaker.Trip(30 * time.Second)
	require.Equal(t, first, second)

	clock.Advance(10 * time.Second)
	third := breaker.Trip(120 * time.Second)
	require.True(t, third.After(second))
}

func TestBreakerConcurrentTripsNeverShorten(t *testing.T) {
	breaker := NewCircuitBreakerState()
	longest := breaker.Trip(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			breaker.Trip(time.Duration(i) * time.Second)
		}(i)
	}
	wg.Wait()
	require.False(t, breaker.BlockedUntil().Before(longest))
}

func TestStatusSnapshot(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	breaker := NewCircuitBreakerStateWithClock(clock.Now)
	gw := newTestGateway(&stubChatClient{}, breaker)

	require.False(t, gw.Status().Open)

	breaker.Trip(1500 * time.Millisecond)
	snap := gw.Status()
	require.True(t, snap.Open)
	require.Equal(t, 2, snap.RetryAfterSeconds)
}
