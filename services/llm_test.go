package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"
)

// flakyLLM fails with errs in order, then succeeds.
type flakyLLM struct {
	errs  []error
	calls atomic.Int32
	block bool
}

func (f *flakyLLM) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	n := int(f.calls.Add(1))
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n <= len(f.errs) {
		return "", f.errs[n-1]
	}
	return "ok", nil
}

func TestResilientLLMRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	next := &flakyLLM{errs: []error{errors.New("503 service unavailable")}}
	llm := NewResilientLLM(next, ResilienceOptions{MaxRetries: 2})

	out, err := llm.Complete(context.Background(), CompletionRequest{Task: TaskAsk, Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" || next.calls.Load() != 2 {
		t.Fatalf("got=%q calls=%d", out, next.calls.Load())
	}
}

func TestResilientLLMDoesNotRetryPermanentFailures(t *testing.T) {
	t.Parallel()
	next := &flakyLLM{errs: []error{errors.New("invalid api key"), errors.New("invalid api key")}}
	llm := NewResilientLLM(next, ResilienceOptions{MaxRetries: 3})

	_, err := llm.Complete(context.Background(), CompletionRequest{Task: TaskMetrics})
	var mce *ModelCallError
	if !errors.As(err, &mce) {
		t.Fatalf("expected ModelCallError, got %v", err)
	}
	if mce.Attempts != 1 || next.calls.Load() != 1 || mce.Task != TaskMetrics {
		t.Fatalf("unexpected attempts: %+v calls=%d", mce, next.calls.Load())
	}
}

func TestResilientLLMTimeout(t *testing.T) {
	t.Parallel()
	next := &flakyLLM{block: true}
	llm := NewResilientLLM(next, ResilienceOptions{Timeout: 20 * time.Millisecond, MaxRetries: 1})

	_, err := llm.Complete(context.Background(), CompletionRequest{Task: TaskQuiz})
	var mce *ModelCallError
	if !errors.As(err, &mce) {
		t.Fatalf("expected ModelCallError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if mce.Attempts != 2 {
		t.Fatalf("attempts: got=%d want=2", mce.Attempts)
	}
}

func TestResilientLLMStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := &flakyLLM{block: true}
	llm := NewResilientLLM(next, ResilienceOptions{MaxRetries: 5})

	_, err := llm.Complete(ctx, CompletionRequest{Task: TaskAsk})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if next.calls.Load() != 1 {
		t.Fatalf("calls: got=%d want=1", next.calls.Load())
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("upstream connection reset by peer"), true},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{errors.New("400 bad request: prompt too long"), false},
		{errors.New("API returned unexpected status code: 502"), true},
		{errors.New("Error 503, Message: The model is overloaded"), true},
		{errors.New("unexpected EOF"), true},
		{fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), true},
		{errors.New("request timed out"), true},
		{errors.New("invalid request: chunk size 500 exceeds limit"), false},
		{errors.New("model geoffrey-7b not found"), false},
		{errors.New("max_tokens must be below 4290"), false},
	}
	for _, tc := range cases {
		if got := isTransient(tc.err); got != tc.want {
			t.Errorf("isTransient(%v): got=%v want=%v", tc.err, got, tc.want)
		}
	}
}

func TestResilientLLMBreakerIgnoresCancelledCalls(t *testing.T) {
	t.Parallel()
	errs := make([]error, 6)
	for i := range errs {
		errs[i] = context.Canceled
	}
	next := &flakyLLM{errs: errs}
	llm := NewResilientLLM(next, ResilienceOptions{})

	for i := range errs {
		if _, err := llm.Complete(context.Background(), CompletionRequest{Task: TaskAsk, Prompt: "p"}); !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: expected context.Canceled, got %v", i+1, err)
		}
	}
	out, err := llm.Complete(context.Background(), CompletionRequest{Task: TaskAsk, Prompt: "p"})
	if err != nil {
		t.Fatalf("breaker tripped on cancelled calls: %v", err)
	}
	if out != "ok" {
		t.Fatalf("got=%q want=%q", out, "ok")
	}
}
