package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github/itish2003/finrag/config"
)

// Shape is the kind of answer a task expects from the model.
type Shape int

const (
	ShapeText Shape = iota
	ShapeObject
	ShapeArray
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	default:
		return "text"
	}
}

type CompletionRequest struct {
	Task   string
	Prompt string
	Shape  Shape
}

// LLM sends one prompt and returns one completion.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// NewLLM creates the configured backend wrapped with timeout, retry and a
// circuit breaker.
func NewLLM(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	var backend LLM
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		backend = &geminiLLM{client: client, model: cfg.Model, temperature: float32(cfg.Temperature)}
	default:
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenRouter client: %w", err)
		}
		backend = &langchainLLM{model: llm, temperature: cfg.Temperature}
	}
	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("LLM: client ready")

	return NewResilientLLM(backend, ResilienceOptions{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Backoff:    500 * time.Millisecond,
	}), nil
}

// langchainLLM talks to any OpenAI compatible endpoint, OpenRouter by default.
type langchainLLM struct {
	model       llms.Model
	temperature float64
}

func (l *langchainLLM) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l.model, req.Prompt, llms.WithTemperature(l.temperature))
}

type geminiLLM struct {
	client      *genai.Client
	model       string
	temperature float32
}

func (g *geminiLLM) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(g.temperature)}
	if req.Shape != ShapeText {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = responseSchemaFor(req.Task)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	return responseText.String(), nil
}

// =====================================================
// resilience

type ResilienceOptions struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

type resilientLLM struct {
	next    LLM
	breaker *gobreaker.CircuitBreaker
	opts    ResilienceOptions
}

func NewResilientLLM(next LLM, opts ResilienceOptions) LLM {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a caller giving up says nothing about the provider's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("LLM: circuit breaker state changed")
		},
	})
	return &resilientLLM{next: next, breaker: breaker, opts: opts}
}

func (r *resilientLLM) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.task", req.Task),
		attribute.String("llm.shape", req.Shape.String()),
		attribute.Int("llm.prompt_chars", len(req.Prompt)),
	)

	var lastErr error
	attempt := 0
	for {
		attempt++
		out, err := r.once(ctx, req)
		if err == nil {
			span.SetAttributes(attribute.Int("llm.attempts", attempt))
			return out, nil
		}
		lastErr = err
		if attempt > r.opts.MaxRetries || ctx.Err() != nil || !isTransient(err) {
			break
		}

		wait := r.opts.Backoff << (attempt - 1)
		log.Warn().Err(err).Str("task", req.Task).Int("attempt", attempt).Dur("backoff", wait).Msg("LLM: transient failure, retrying")
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				lastErr = ctx.Err()
			case <-timer.C:
			}
			if ctx.Err() != nil {
				break
			}
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "model call failed")
	span.SetAttributes(attribute.Int("llm.attempts", attempt))
	log.Error().Err(lastErr).Str("task", req.Task).Int("attempts", attempt).Msg("LLM: call failed")
	return "", &ModelCallError{Task: req.Task, Attempts: attempt, Err: lastErr}
}

func (r *resilientLLM) once(ctx context.Context, req CompletionRequest) (string, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

var (
	transientStatus = regexp.MustCompile(`(?:^|status|code|http(?:/\d(?:\.\d)?)?|error)[\s:=#,(\[]{0,4}(?:429|50[0234])\b`)
	transientPhrase = regexp.MustCompile(`rate[ _-]?limit|too many requests|\btimed? ?out\b|connection (?:reset|refused)|\bunavailable\b|\beof\b`)
)

// isTransient decides whether a failed call is worth repeating.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return transientStatus.MatchString(msg) || transientPhrase.MatchString(msg)
}
