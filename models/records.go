package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NotAvailable is the per-field placeholder used when a metric is missing.
const NotAvailable = "N/A"

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Point struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

type TimeSeries struct {
	Revenue []Point `json:"revenue"`
	Profit  []Point `json:"profit"`
}

type Segment struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

type KeyMetrics struct {
	Revenue       string `json:"revenue"`
	RevenueGrowth string `json:"revenue_growth"`
	Profit        string `json:"profit"`
	ProfitGrowth  string `json:"profit_growth"`
	ROE           string `json:"roe"`
	EPS           string `json:"eps"`
}

type FinancialMetrics struct {
	TotalAssets       string `json:"total_assets"`
	TotalEquity       string `json:"total_equity"`
	CurrentAssets     string `json:"current_assets"`
	RevenueOperations string `json:"revenue_operations"`
	NetProfit         string `json:"net_profit"`
	BasicEPS          string `json:"basic_eps"`
}

type RevenueSegment struct {
	Segment    string  `json:"segment"`
	Percentage float64 `json:"percentage"`
	Revenue    string  `json:"revenue"`
}

type QuarterlyPoint struct {
	Quarter string  `json:"quarter"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func DefaultKeyMetrics() KeyMetrics {
	return KeyMetrics{
		Revenue:       NotAvailable,
		RevenueGrowth: NotAvailable,
		Profit:        NotAvailable,
		ProfitGrowth:  NotAvailable,
		ROE:           NotAvailable,
		EPS:           NotAvailable,
	}
}

func DefaultFinancialMetrics() FinancialMetrics {
	return FinancialMetrics{
		TotalAssets:       NotAvailable,
		TotalEquity:       NotAvailable,
		CurrentAssets:     NotAvailable,
		RevenueOperations: NotAvailable,
		NetProfit:         NotAvailable,
		BasicEPS:          NotAvailable,
	}
}

func DefaultRevenueBreakdown() []RevenueSegment {
	return []RevenueSegment{
		{Segment: "Product A", Percentage: 45, Revenue: NotAvailable},
		{Segment: "Product B", Percentage: 30, Revenue: NotAvailable},
		{Segment: "Other", Percentage: 25, Revenue: NotAvailable},
	}
}

func DefaultRecommendations() []Recommendation {
	return []Recommendation{
		{
			Title:       "Diversify Revenue Streams",
			Description: "Based on your financial data, consider exploring new product lines to reduce dependency on Product A.",
		},
		{
			Title:       "Optimize Operating Expenses",
			Description: "Your operating expenses have increased by 8% compared to last year. Consider reviewing major cost centers.",
		},
	}
}

// KeyMetricsFromUntrusted accepts any JSON object; missing or non-scalar
// fields fall back to NotAvailable. Only a non-object is an error.
func KeyMetricsFromUntrusted(v any) (KeyMetrics, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return KeyMetrics{}, fmt.Errorf("key metrics: expected object, got %s", kindOf(v))
	}
	return KeyMetrics{
		Revenue:       stringField(obj, "revenue"),
		RevenueGrowth: stringField(obj, "revenue_growth"),
		Profit:        stringField(obj, "profit"),
		ProfitGrowth:  stringField(obj, "profit_growth"),
		ROE:           stringField(obj, "roe"),
		EPS:           stringField(obj, "eps"),
	}, nil
}

func FinancialMetricsFromUntrusted(v any) (FinancialMetrics, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return FinancialMetrics{}, fmt.Errorf("financial metrics: expected object, got %s", kindOf(v))
	}
	return FinancialMetrics{
		TotalAssets:       stringField(obj, "total_assets"),
		TotalEquity:       stringField(obj, "total_equity"),
		CurrentAssets:     stringField(obj, "current_assets"),
		RevenueOperations: stringField(obj, "revenue_operations"),
		NetProfit:         stringField(obj, "net_profit"),
		BasicEPS:          stringField(obj, "basic_eps"),
	}, nil
}

func MetricsFromUntrusted(v any) ([]Metric, error) {
	items, err := nonEmptyArray(v, "metrics")
	if err != nil {
		return nil, err
	}
	out := make([]Metric, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("metrics[%d]: expected object, got %s", i, kindOf(item))
		}
		label, ok := asString(obj["label"])
		if !ok || label == "" {
			return nil, fmt.Errorf("metrics[%d]: missing label", i)
		}
		value, ok := asString(obj["value"])
		if !ok {
			return nil, fmt.Errorf("metrics[%d]: missing value", i)
		}
		out = append(out, Metric{Label: label, Value: value})
	}
	return out, nil
}

func TimeSeriesFromUntrusted(v any) (TimeSeries, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return TimeSeries{}, fmt.Errorf("time series: expected object, got %s", kindOf(v))
	}
	revenue, err := pointsField(obj, "revenue")
	if err != nil {
		return TimeSeries{}, err
	}
	profit, err := pointsField(obj, "profit")
	if err != nil {
		return TimeSeries{}, err
	}
	return TimeSeries{Revenue: revenue, Profit: profit}, nil
}

func pointsField(obj map[string]any, key string) ([]Point, error) {
	raw, present := obj[key]
	if !present {
		return nil, fmt.Errorf("time series: missing %q", key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("time series: %q must be an array, got %s", key, kindOf(raw))
	}
	points := make([]Point, 0, len(items))
	for i, item := range items {
		p, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: expected object, got %s", key, i, kindOf(item))
		}
		x, ok := asString(p["x"])
		if !ok || x == "" {
			return nil, fmt.Errorf("%s[%d]: missing x", key, i)
		}
		y, ok := asNumber(p["y"])
		if !ok {
			return nil, fmt.Errorf("%s[%d]: y is not numeric", key, i)
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points, nil
}

func SegmentsFromUntrusted(v any) ([]Segment, error) {
	items, err := nonEmptyArray(v, "segments")
	if err != nil {
		return nil, err
	}
	out := make([]Segment, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("segments[%d]: expected object, got %s", i, kindOf(item))
		}
		x, ok := asString(obj["x"])
		if !ok || x == "" {
			return nil, fmt.Errorf("segments[%d]: missing x", i)
		}
		y, ok := asNumber(obj["y"])
		if !ok {
			return nil, fmt.Errorf("segments[%d]: y is not numeric", i)
		}
		out = append(out, Segment{X: x, Y: y})
	}
	return out, nil
}

func RevenueBreakdownFromUntrusted(v any) ([]RevenueSegment, error) {
	items, err := nonEmptyArray(v, "revenue breakdown")
	if err != nil {
		return nil, err
	}
	out := make([]RevenueSegment, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("revenue breakdown[%d]: expected object, got %s", i, kindOf(item))
		}
		name, ok := asString(obj["segment"])
		if !ok || name == "" {
			return nil, fmt.Errorf("revenue breakdown[%d]: missing segment", i)
		}
		pct, ok := asNumber(obj["percentage"])
		if !ok {
			return nil, fmt.Errorf("revenue breakdown[%d]: percentage is not numeric", i)
		}
		out = append(out, RevenueSegment{
			Segment:    name,
			Percentage: pct,
			Revenue:    stringField(obj, "revenue"),
		})
	}
	return out, nil
}

func QuarterlyDataFromUntrusted(v any) ([]QuarterlyPoint, error) {
	items, err := nonEmptyArray(v, "quarterly data")
	if err != nil {
		return nil, err
	}
	out := make([]QuarterlyPoint, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("quarterly data[%d]: expected object, got %s", i, kindOf(item))
		}
		quarter, ok := asString(obj["quarter"])
		if !ok || quarter == "" {
			return nil, fmt.Errorf("quarterly data[%d]: missing quarter", i)
		}
		revenue, ok := asNumber(obj["revenue"])
		if !ok {
			return nil, fmt.Errorf("quarterly data[%d]: revenue is not numeric", i)
		}
		profit, ok := asNumber(obj["profit"])
		if !ok {
			return nil, fmt.Errorf("quarterly data[%d]: profit is not numeric", i)
		}
		out = append(out, QuarterlyPoint{Quarter: quarter, Revenue: revenue, Profit: profit})
	}
	return out, nil
}

func RecommendationsFromUntrusted(v any) ([]Recommendation, error) {
	items, err := nonEmptyArray(v, "recommendations")
	if err != nil {
		return nil, err
	}
	out := make([]Recommendation, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("recommendations[%d]: expected object, got %s", i, kindOf(item))
		}
		title, ok := asString(obj["title"])
		if !ok || title == "" {
			return nil, fmt.Errorf("recommendations[%d]: missing title", i)
		}
		desc, ok := asString(obj["description"])
		if !ok || desc == "" {
			return nil, fmt.Errorf("recommendations[%d]: missing description", i)
		}
		out = append(out, Recommendation{Title: title, Description: desc})
	}
	return out, nil
}

func nonEmptyArray(v any, what string) ([]any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected array, got %s", what, kindOf(v))
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: array is empty", what)
	}
	return items, nil
}

func stringField(obj map[string]any, key string) string {
	if s, ok := asString(obj[key]); ok && s != "" {
		return s
	}
	return NotAvailable
}

// asString coerces JSON scalars to their textual form.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// asNumber accepts JSON numbers and strings such as "45%", "1,200.5" or
// "INR 355,170".
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		m := numberRe.FindString(strings.ReplaceAll(t, ",", ""))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
