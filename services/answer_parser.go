package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

// ExtractionKind tags what was found in raw model output.
type ExtractionKind int

const (
	KindUnparseable ExtractionKind = iota
	KindJSON
	KindFencedJSON
	KindNoData
)

func (k ExtractionKind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindFencedJSON:
		return "fenced json"
	case KindNoData:
		return "no data"
	default:
		return "unparseable"
	}
}

// Extraction is the result of ExtractJSON. Value is only set for the two JSON kinds.
type Extraction struct {
	Kind  ExtractionKind
	Text  string
	Value any
}

// HasJSON reports whether Value holds decoded JSON.
func (e Extraction) HasJSON() bool {
	return e.Kind == KindJSON || e.Kind == KindFencedJSON
}

var noDataPhrases = []string{
	"don't know",
	"do not know",
	"don’t know",
	"not available",
	"no information",
	"not mentioned",
	"cannot find",
	"can't find",
	"not provided",
}

// ExtractJSON pulls a JSON value out of model output. Surrounding whitespace is
// trimmed; when the text contains a fenced block only the first block is kept.
func ExtractJSON(raw string) Extraction {
	text := strings.TrimSpace(raw)
	fenced := false
	if body, ok := firstFencedBlock(text); ok {
		text = body
		fenced = true
	}

	if text != "" && json.Valid([]byte(text)) {
		var v any
		if err := json.Unmarshal([]byte(text), &v); err == nil {
			kind := KindJSON
			if fenced {
				kind = KindFencedJSON
			}
			return Extraction{Kind: kind, Text: text, Value: v}
		}
	}

	if mentionsNoData(raw) {
		return Extraction{Kind: KindNoData, Text: text}
	}
	return Extraction{Kind: KindUnparseable, Text: text}
}

func firstFencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	body := text[start+3:]
	// drop the info string, e.g. ```json, which may share a line with the payload
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[\"") {
		body = body[nl+1:]
	} else {
		body = trimInfoToken(body)
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

func trimInfoToken(body string) string {
	if body == "" || !unicode.IsLetter(rune(body[0])) {
		return body
	}
	end := strings.IndexFunc(body, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("-_+.", r)
	})
	if end < 0 {
		return body
	}
	if next := rune(body[end]); unicode.IsSpace(next) || next == '{' || next == '[' {
		return body[end:]
	}
	return body
}

func mentionsNoData(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range noDataPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Extracted carries a record and whether it is a substituted default.
type Extracted[T any] struct {
	Value    T
	Fallback bool
	Reason   string
}

// parseStrict decodes raw into T and fails on anything that does not validate.
func parseStrict[T any](task, raw string, from func(any) (T, error)) (T, error) {
	var zero T
	ex := ExtractJSON(raw)
	if !ex.HasJSON() {
		return zero, &ParseValidationError{Task: task, Kind: ex.Kind}
	}
	v, err := from(ex.Value)
	if err != nil {
		return zero, &ParseValidationError{Task: task, Kind: ex.Kind, Err: err}
	}
	return v, nil
}

// parseOrDefault substitutes fallback() when raw cannot be decoded into T.
func parseOrDefault[T any](task, raw string, from func(any) (T, error), fallback func() T) Extracted[T] {
	v, err := parseStrict(task, raw, from)
	if err == nil {
		return Extracted[T]{Value: v}
	}
	reason := err.Error()
	var pve *ParseValidationError
	if errors.As(err, &pve) && pve.Kind == KindNoData {
		reason = fmt.Sprintf("%s: model reported no data", task)
	}
	log.Warn().Str("task", task).Str("reason", reason).Msg("SERVICE: using default record")
	return Extracted[T]{Value: fallback(), Fallback: true, Reason: reason}
}
