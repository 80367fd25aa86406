package services

import (
	"errors"
	"testing"

	"github/itish2003/finrag/models"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want ExtractionKind
	}{
		{"bare object", `  {"revenue":"INR 1 Million"}  `, KindJSON},
		{"bare array", "[1,2,3]", KindJSON},
		{"fenced with language", "Sure, here it is:\n```json\n[{\"label\":\"Revenue\",\"value\":\"1\"}]\n```\nLet me know.", KindFencedJSON},
		{"fenced without language", "```\n{\"a\":1}\n```", KindFencedJSON},
		{"fenced language on payload line", "```json {\"a\":1}\n```", KindFencedJSON},
		{"fenced single line", "Here: ```json {\"a\":1}```", KindFencedJSON},
		{"fenced single line array", "```JSON[1,2]```", KindFencedJSON},
		{"first fence wins", "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", KindFencedJSON},
		{"no data", "I don't know the revenue breakdown from this context.", KindNoData},
		{"no data curly apostrophe", "I don’t know.", KindNoData},
		{"prose", "Revenue grew strongly in 2023.", KindUnparseable},
		{"broken fenced", "```json\n{\"a\":\n```", KindUnparseable},
		{"empty", "   ", KindUnparseable},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractJSON(tc.raw)
			if got.Kind != tc.want {
				t.Fatalf("kind: got=%s want=%s (text=%q)", got.Kind, tc.want, got.Text)
			}
			if got.HasJSON() && got.Value == nil {
				t.Fatalf("json kinds must carry a value")
			}
		})
	}
}

func TestExtractJSONKeepsFirstFencedBlock(t *testing.T) {
	t.Parallel()
	got := ExtractJSON("```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```")
	obj, ok := got.Value.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", got.Value)
	}
	if _, ok := obj["a"]; !ok {
		t.Fatalf("expected first block, got %v", obj)
	}
}

func TestExtractJSONSingleLineFence(t *testing.T) {
	t.Parallel()
	got := ExtractJSON("```json {\"a\":1}```")
	obj, ok := got.Value.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T (kind=%s)", got.Value, got.Kind)
	}
	if obj["a"] != float64(1) {
		t.Fatalf("a: got=%v want=1", obj["a"])
	}
}

func TestParseStrictReportsValidationFailure(t *testing.T) {
	t.Parallel()
	_, err := parseStrict("metrics", "[]", models.MetricsFromUntrusted)
	var pve *ParseValidationError
	if !errors.As(err, &pve) {
		t.Fatalf("expected ParseValidationError, got %v", err)
	}
	if pve.Kind != KindJSON {
		t.Fatalf("kind: got=%s want=%s", pve.Kind, KindJSON)
	}

	_, err = parseStrict("metrics", "no idea", models.MetricsFromUntrusted)
	if !errors.As(err, &pve) || pve.Kind != KindUnparseable {
		t.Fatalf("expected unparseable error, got %v", err)
	}
}

func TestParseOrDefaultKeyMetrics(t *testing.T) {
	t.Parallel()
	raw := `{"revenue":"INR 1 Million","revenue_growth":"1.0%","profit":"INR 1 Million","profit_growth":"1.0%","roe":"1.0%","eps":"INR 1.00"}`
	got := parseOrDefault("key-metrics", raw, models.KeyMetricsFromUntrusted, models.DefaultKeyMetrics)
	if got.Fallback {
		t.Fatalf("well formed input should not fall back: %s", got.Reason)
	}
	if got.Value.Revenue != "INR 1 Million" || got.Value.EPS != "INR 1.00" {
		t.Fatalf("unexpected record: %+v", got.Value)
	}

	got = parseOrDefault("key-metrics", `{"revenue": "INR`, models.KeyMetricsFromUntrusted, models.DefaultKeyMetrics)
	if !got.Fallback {
		t.Fatalf("malformed input should fall back")
	}
	if got.Value != models.DefaultKeyMetrics() {
		t.Fatalf("fallback should be the default record: %+v", got.Value)
	}
}

func TestParseOrDefaultRevenueBreakdownNoData(t *testing.T) {
	t.Parallel()
	got := parseOrDefault("revenue-breakdown", "I do not know the segments.", models.RevenueBreakdownFromUntrusted, models.DefaultRevenueBreakdown)
	if !got.Fallback {
		t.Fatalf("no-data answer should fall back")
	}
	if len(got.Value) != 3 || got.Value[0].Segment != "Product A" || got.Value[0].Percentage != 45 {
		t.Fatalf("unexpected default breakdown: %+v", got.Value)
	}
}
