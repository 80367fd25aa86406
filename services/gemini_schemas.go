package services

import "google.golang.org/genai"

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func num(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func object(required []string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

func arrayOf(item *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: item}
}

func pointSeries() *genai.Schema {
	return arrayOf(object([]string{"x", "y"}, map[string]*genai.Schema{
		"x": str("Fiscal year, e.g. 2023"),
		"y": num("Amount for that year"),
	}))
}

// responseSchemaFor returns the Gemini response schema of a JSON task, or nil
// when the task has none and plain JSON mode is enough.
func responseSchemaFor(task string) *genai.Schema {
	switch task {
	case TaskMetrics:
		return arrayOf(object([]string{"label", "value"}, map[string]*genai.Schema{
			"label": str("Name of the metric, e.g. Revenue"),
			"value": str("Value with unit, e.g. INR 355,170 Million"),
		}))
	case TaskTimeSeries:
		return object([]string{"revenue", "profit"}, map[string]*genai.Schema{
			"revenue": pointSeries(),
			"profit":  pointSeries(),
		})
	case TaskSegments:
		return arrayOf(object([]string{"x", "y"}, map[string]*genai.Schema{
			"x": str("Business segment name"),
			"y": num("Segment revenue"),
		}))
	case TaskKeyMetrics:
		return object([]string{"revenue", "revenue_growth", "profit", "profit_growth", "roe", "eps"}, map[string]*genai.Schema{
			"revenue":        str("Total revenue with unit"),
			"revenue_growth": str("Year over year revenue growth in percent"),
			"profit":         str("Net profit with unit"),
			"profit_growth":  str("Year over year profit growth in percent"),
			"roe":            str("Return on equity in percent"),
			"eps":            str("Earnings per share with currency"),
		})
	case TaskFinancialMetrics:
		return object([]string{"total_assets", "total_equity", "current_assets", "revenue_operations", "net_profit", "basic_eps"}, map[string]*genai.Schema{
			"total_assets":       str("Total assets with unit"),
			"total_equity":       str("Total equity with unit"),
			"current_assets":     str("Current assets with unit"),
			"revenue_operations": str("Revenue from operations with unit"),
			"net_profit":         str("Net profit with unit"),
			"basic_eps":          str("Basic earnings per share with currency"),
		})
	case TaskRevenueBreakdown:
		return arrayOf(object([]string{"segment", "percentage", "revenue"}, map[string]*genai.Schema{
			"segment":    str("Segment or product line"),
			"percentage": num("Share of total revenue in percent"),
			"revenue":    str("Segment revenue with unit"),
		}))
	case TaskQuarterlyData:
		return arrayOf(object([]string{"quarter", "revenue", "profit"}, map[string]*genai.Schema{
			"quarter": str("Quarter label, e.g. Q1 FY24"),
			"revenue": num("Quarter revenue"),
			"profit":  num("Quarter profit"),
		}))
	case TaskRecommendations:
		return arrayOf(object([]string{"title", "description"}, map[string]*genai.Schema{
			"title":       str("Short recommendation title"),
			"description": str("One or two sentences grounded in the report"),
		}))
	case TaskQuiz:
		choices := object([]string{"A", "B", "C", "D"}, map[string]*genai.Schema{
			"A": str("Choice A"),
			"B": str("Choice B"),
			"C": str("Choice C"),
			"D": str("Choice D"),
		})
		question := object([]string{"id", "question", "choices", "correct_answer"}, map[string]*genai.Schema{
			"id":             {Type: genai.TypeInteger, Description: "Question number from 1 to 10"},
			"question":       str("Question about the report"),
			"choices":        choices,
			"correct_answer": {Type: genai.TypeString, Enum: []string{"A", "B", "C", "D"}},
		})
		return object([]string{"questions"}, map[string]*genai.Schema{
			"questions": arrayOf(question),
		})
	case TaskExplain:
		return object([]string{"explanation"}, map[string]*genai.Schema{
			"explanation": str("Why the correct answer is correct, citing the report"),
		})
	default:
		return nil
	}
}
