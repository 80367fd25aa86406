package models

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return v
}

func TestKeyMetricsFromUntrustedKeepsWellFormedValues(t *testing.T) {
	t.Parallel()
	raw := `{"revenue":"INR 1 Million","revenue_growth":"1.0%","profit":"INR 1 Million","profit_growth":"1.0%","roe":"1.0%","eps":"INR 1.00"}`

	got, err := KeyMetricsFromUntrusted(decode(t, raw))
	if err != nil {
		t.Fatalf("KeyMetricsFromUntrusted: %v", err)
	}
	want := KeyMetrics{
		Revenue:       "INR 1 Million",
		RevenueGrowth: "1.0%",
		Profit:        "INR 1 Million",
		ProfitGrowth:  "1.0%",
		ROE:           "1.0%",
		EPS:           "INR 1.00",
	}
	if got != want {
		t.Fatalf("unexpected record: got=%+v want=%+v", got, want)
	}
}

func TestKeyMetricsFromUntrustedDefaultsMissingFields(t *testing.T) {
	t.Parallel()
	got, err := KeyMetricsFromUntrusted(decode(t, `{"revenue":"INR 5 Million","eps":12.5,"roe":null}`))
	if err != nil {
		t.Fatalf("KeyMetricsFromUntrusted: %v", err)
	}
	if got.Revenue != "INR 5 Million" {
		t.Fatalf("revenue: got=%q", got.Revenue)
	}
	if got.EPS != "12.5" {
		t.Fatalf("numeric eps should be coerced: got=%q", got.EPS)
	}
	if got.ROE != NotAvailable || got.Profit != NotAvailable {
		t.Fatalf("missing fields should default: %+v", got)
	}
}

func TestKeyMetricsFromUntrustedRejectsArray(t *testing.T) {
	t.Parallel()
	if _, err := KeyMetricsFromUntrusted(decode(t, `[1,2]`)); err == nil {
		t.Fatalf("expected error for array input")
	}
}

func TestFinancialMetricsFromUntrusted(t *testing.T) {
	t.Parallel()
	got, err := FinancialMetricsFromUntrusted(decode(t, `{"total_assets":"INR 10 Bn","net_profit":"INR 1 Bn"}`))
	if err != nil {
		t.Fatalf("FinancialMetricsFromUntrusted: %v", err)
	}
	if got.TotalAssets != "INR 10 Bn" || got.NetProfit != "INR 1 Bn" {
		t.Fatalf("unexpected values: %+v", got)
	}
	if got.BasicEPS != NotAvailable || got.TotalEquity != NotAvailable {
		t.Fatalf("missing fields should default: %+v", got)
	}
}

func TestStrictRecordsRejectShapeMismatch(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		raw   string
		parse func(any) error
	}{
		{"metrics not array", `{"label":"x"}`, func(v any) error { _, err := MetricsFromUntrusted(v); return err }},
		{"metrics empty", `[]`, func(v any) error { _, err := MetricsFromUntrusted(v); return err }},
		{"metrics missing label", `[{"value":"1"}]`, func(v any) error { _, err := MetricsFromUntrusted(v); return err }},
		{"timeseries missing profit", `{"revenue":[]}`, func(v any) error { _, err := TimeSeriesFromUntrusted(v); return err }},
		{"timeseries bad y", `{"revenue":[{"x":"2020","y":"n/a"}],"profit":[]}`, func(v any) error { _, err := TimeSeriesFromUntrusted(v); return err }},
		{"segments object", `{"x":"a","y":1}`, func(v any) error { _, err := SegmentsFromUntrusted(v); return err }},
		{"quarterly missing profit", `[{"quarter":"Q1","revenue":1}]`, func(v any) error { _, err := QuarterlyDataFromUntrusted(v); return err }},
		{"recommendations empty title", `[{"title":"","description":"d"}]`, func(v any) error { _, err := RecommendationsFromUntrusted(v); return err }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := tc.parse(decode(t, tc.raw)); err == nil {
				t.Fatalf("expected error for %s", tc.raw)
			}
		})
	}
}

func TestTimeSeriesFromUntrustedCoercesYears(t *testing.T) {
	t.Parallel()
	got, err := TimeSeriesFromUntrusted(decode(t, `{"revenue":[{"x":2019,"y":1000000}],"profit":[{"x":"2019","y":"100,000"}]}`))
	if err != nil {
		t.Fatalf("TimeSeriesFromUntrusted: %v", err)
	}
	if got.Revenue[0].X != "2019" || got.Revenue[0].Y != 1000000 {
		t.Fatalf("revenue point: %+v", got.Revenue[0])
	}
	if got.Profit[0].Y != 100000 {
		t.Fatalf("profit y: got=%v", got.Profit[0].Y)
	}
}

func TestRevenueBreakdownFromUntrusted(t *testing.T) {
	t.Parallel()
	got, err := RevenueBreakdownFromUntrusted(decode(t, `[{"segment":"Retail","percentage":"62.5%","revenue":"INR 10 Bn"},{"segment":"Cloud","percentage":37.5}]`))
	if err != nil {
		t.Fatalf("RevenueBreakdownFromUntrusted: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len: got=%d want=2", len(got))
	}
	if got[0].Percentage != 62.5 || got[1].Revenue != NotAvailable {
		t.Fatalf("unexpected segments: %+v", got)
	}
}

func TestAsNumber(t *testing.T) {
	t.Parallel()
	cases := map[string]float64{
		"45%":         45,
		"1,200.5":     1200.5,
		"INR 355,170": 355170,
		"-3.2":        -3.2,
	}
	for in, want := range cases {
		got, ok := asNumber(in)
		if !ok || got != want {
			t.Fatalf("asNumber(%q): got=%v,%v want=%v", in, got, ok, want)
		}
	}
	if _, ok := asNumber("none"); ok {
		t.Fatalf("asNumber should reject text without digits")
	}
}
