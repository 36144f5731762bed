// Package llm is the text-completion collaborator used for categorization
// fallbacks, advice and agent prompts.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyCompletion = errors.New("llm: empty completion")
	ErrNotConfigured   = errors.New("llm: no provider configured")
)

// Request is a single system + user prompt exchange.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completer returns the free-form text answer to a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Disabled always fails with ErrNotConfigured, so every caller takes its fallback.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}

// WithTimeout bounds every call to next. A non-positive timeout returns next unchanged.
func WithTimeout(next Completer, timeout time.Duration) Completer {
	if timeout <= 0 {
		return next
	}
	return CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		out, err := next.Complete(ctx, req)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("llm call exceeded %s: %w", timeout, err)
		}
		return out, err
	})
}

// Result is one entry of CompleteAll.
type Result struct {
	Text string
	Err  error
}

// maxConcurrent bounds the in-flight requests of one CompleteAll call.
const maxConcurrent = 8

// CompleteAll runs the requests concurrently and returns their results in
// submission order. A failing request does not cancel the others.
func CompleteAll(ctx context.Context, c Completer, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	var g errgroup.Group
	g.SetLimit(maxConcurrent)
	for i, req := range reqs {
		g.Go(func() error {
			text, err := c.Complete(ctx, req)
			results[i] = Result{Text: text, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
