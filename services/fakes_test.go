package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

const fakeDims = 64

// hashEmbedder is a deterministic bag-of-words embedder. Dimension 0 is a
// constant bias so that no vector is ever zero.
type hashEmbedder struct {
	mu       sync.Mutex
	fail     error
	docCalls int
}

func (h *hashEmbedder) vector(text string) []float32 {
	v := make([]float32, fakeDims)
	v[0] = 0.1
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		v[1+int(f.Sum32()%(fakeDims-1))]++
	}
	return v
}

func (h *hashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.docCalls++
	fail := h.fail
	h.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *hashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return h.vector(text), nil
}

func (h *hashEmbedder) setFail(err error) {
	h.mu.Lock()
	h.fail = err
	h.mu.Unlock()
}

// mapExtractor returns canned text keyed by the upload bytes.
type mapExtractor struct {
	texts map[string]string
}

func (m *mapExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	text, ok := m.texts[string(data)]
	if !ok {
		return "", &ExtractionError{Reason: "unknown test document"}
	}
	return text, nil
}

// scriptedLLM answers by task name; Prompts records every prompt it saw.
// onCall, when set, runs before the answer is returned.
type scriptedLLM struct {
	mu       sync.Mutex
	answers  map[string]string
	fallback string
	err      error
	onCall   func(req CompletionRequest)
	Prompts  []CompletionRequest
}

func (s *scriptedLLM) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	s.mu.Lock()
	hook := s.onCall
	s.mu.Unlock()
	if hook != nil {
		hook(req)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, req)
	if s.err != nil {
		return "", s.err
	}
	if a, ok := s.answers[req.Task]; ok {
		return a, nil
	}
	return s.fallback, nil
}

func (s *scriptedLLM) prompts() []CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompletionRequest(nil), s.Prompts...)
}

func (s *scriptedLLM) set(task, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answers == nil {
		s.answers = map[string]string{}
	}
	s.answers[task] = answer
}

func (s *scriptedLLM) last() CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Prompts) == 0 {
		return CompletionRequest{}
	}
	return s.Prompts[len(s.Prompts)-1]
}

var errEmbeddingDown = errors.New("embedding server unavailable")
