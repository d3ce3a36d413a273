// Package tokens estimates prompt sizes so candidate lists fit the model window.
package tokens

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultEncoding = "cl100k_base"
	loadTimeout     = 5 * time.Second
)

// Estimator counts tokens for a piece of text.
type Estimator interface {
	Count(text string) int
}

// Loader produces a BPE encoding. It may block on network I/O.
type Loader func() (*tiktoken.Tiktoken, error)

// Counter counts tokens with tiktoken and uses a word-based estimate until
// (or unless) the encoding has loaded. Count never waits on the loader.
type Counter struct {
	enc    atomic.Pointer[tiktoken.Tiktoken]
	logger *slog.Logger
}

// NewCounter starts loading cl100k_base in the background.
func NewCounter(logger *slog.Logger) *Counter {
	return NewCounterWithLoader(logger, func() (*tiktoken.Tiktoken, error) {
		return tiktoken.GetEncoding(defaultEncoding)
	}, loadTimeout)
}

// NewCounterWithLoader runs load in its own goroutine. A load that has not
// finished within timeout is reported once; the word estimate stays in use
// until it completes.
func NewCounterWithLoader(logger *slog.Logger, load Loader, timeout time.Duration) *Counter {
	c := &Counter{logger: logger.With("component", "llm.tokens")}
	done := make(chan error, 1)
	go func() {
		enc, err := load()
		if err == nil {
			c.enc.Store(enc)
		}
		done <- err
	}()
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case err := <-done:
			if err != nil {
				c.logger.Warn("tiktoken encoding unavailable, using word estimate", "encoding", defaultEncoding, "error", err)
			}
		case <-timer.C:
			c.logger.Warn("tiktoken encoding still loading, using word estimate", "encoding", defaultEncoding, "timeout", timeout)
		}
	}()
	return c
}

// NewWordCounter never attempts to load an encoding.
func NewWordCounter() *Counter {
	return &Counter{}
}

// Count returns the token estimate for text.
func (c *Counter) Count(text string) int {
	if enc := c.enc.Load(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return estimateWords(text)
}

var _ Estimator = (*Counter)(nil)

// estimateWords approximates BPE output as four tokens per three words.
func estimateWords(text string) int {
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}

// FitPrefix returns how many leading items fit in budget, given a fixed
// overhead and per-item renderings. At least one item is kept when any exist.
func FitPrefix(c Estimator, budget, overhead int, items []string) int {
	if budget <= 0 {
		return len(items)
	}
	used := overhead
	for i, item := range items {
		used += c.Count(item)
		if used > budget {
			if i == 0 {
				return 1
			}
			return i
		}
	}
	return len(items)
}
