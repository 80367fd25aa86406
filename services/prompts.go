package services

import "strings"

const (
	TaskAsk              = "ask"
	TaskMetrics          = "metrics"
	TaskTimeSeries       = "timeseries"
	TaskSegments         = "segments"
	TaskKeyMetrics       = "key-metrics"
	TaskFinancialMetrics = "financial-metrics"
	TaskRevenueBreakdown = "revenue-breakdown"
	TaskQuarterlyData    = "quarterly-data"
	TaskRecommendations  = "recommendations"
	TaskQuiz             = "quiz"
	TaskExplain          = "explain-answer"
)

const stuffPreamble = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer."

// ComposePrompt lays the retrieved chunks out as context, in retrieval order,
// followed by the instruction.
func ComposePrompt(chunks []string, instruction string) string {
	var sb strings.Builder
	sb.WriteString(stuffPreamble)
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(chunks, "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(strings.TrimSpace(instruction))
	sb.WriteString("\nHelpful Answer:")
	return sb.String()
}

// Task is a fixed extraction: Query drives retrieval, Instruction is what the
// model is asked, Shape is what the answer must decode to.
type Task struct {
	Name        string
	Query       string
	Instruction string
	Shape       Shape
}

const jsonOnly = " Respond with the JSON only, without any explanation or markdown."

var (
	metricsTask = Task{
		Name:  TaskMetrics,
		Query: "key financial metrics revenue profit earnings per share assets",
		Instruction: `Extract all key financial metrics (label and value) from the uploaded PDF ` +
			`and return them as a JSON array like ` +
			`[{"label":"Revenue","value":"INR 355,170 Million"}, ...].` + jsonOnly,
		Shape: ShapeArray,
	}
	timeSeriesTask = Task{
		Name:  TaskTimeSeries,
		Query: "yearly revenue and profit figures over multiple years",
		Instruction: `Extract yearly revenue and profit figures from the report. Return as JSON in format: ` +
			`{"revenue": [{"x": "2019", "y": 1000000}, ...], ` +
			`"profit": [{"x": "2019", "y": 100000}, ...]}` + jsonOnly,
		Shape: ShapeObject,
	}
	segmentsTask = Task{
		Name:  TaskSegments,
		Query: "business segment revenue distribution",
		Instruction: `Extract business segment revenue distribution from the report. ` +
			`Return as JSON array: [{"x": "Segment Name", "y": revenue_value}, ...]` + jsonOnly,
		Shape: ShapeArray,
	}
	keyMetricsTask = Task{
		Name:  TaskKeyMetrics,
		Query: "total revenue revenue growth net profit profit growth return on equity earnings per share",
		Instruction: `Extract the headline metrics of the report as a JSON object with exactly these keys: ` +
			`revenue, revenue_growth, profit, profit_growth, roe, eps. Example: ` +
			`{"revenue":"INR 1 Million","revenue_growth":"1.0%","profit":"INR 1 Million",` +
			`"profit_growth":"1.0%","roe":"1.0%","eps":"INR 1.00"}. ` +
			`Use "N/A" for any value the report does not state.` + jsonOnly,
		Shape: ShapeObject,
	}
	financialMetricsTask = Task{
		Name:  TaskFinancialMetrics,
		Query: "balance sheet total assets total equity current assets revenue from operations net profit basic EPS",
		Instruction: `Extract balance sheet and income statement figures as a JSON object with exactly these keys: ` +
			`total_assets, total_equity, current_assets, revenue_operations, net_profit, basic_eps. Example: ` +
			`{"total_assets":"INR 10,000 Million","total_equity":"INR 6,000 Million","current_assets":"INR 4,000 Million",` +
			`"revenue_operations":"INR 8,000 Million","net_profit":"INR 900 Million","basic_eps":"INR 12.50"}. ` +
			`Use "N/A" for any value the report does not state.` + jsonOnly,
		Shape: ShapeObject,
	}
	revenueBreakdownTask = Task{
		Name:  TaskRevenueBreakdown,
		Query: "revenue by segment product line geography share of total revenue",
		Instruction: `Break total revenue down by segment or product line. Return a JSON array like ` +
			`[{"segment":"Retail","percentage":62.5,"revenue":"INR 1,000 Million"}, ...] ` +
			`where percentages add up to about 100. If the report has no breakdown, say that you don't know.`,
		Shape: ShapeArray,
	}
	quarterlyDataTask = Task{
		Name:  TaskQuarterlyData,
		Query: "quarterly results revenue profit by quarter",
		Instruction: `Extract quarterly revenue and profit from the report. Return a JSON array like ` +
			`[{"quarter":"Q1 FY24","revenue":12000,"profit":1500}, ...] with numbers only in revenue and profit.` + jsonOnly,
		Shape: ShapeArray,
	}
	recommendationsTask = Task{
		Name:  TaskRecommendations,
		Query: "risks challenges outlook costs expenses growth opportunities",
		Instruction: `Based on the report, give 2 to 4 actionable business recommendations as a JSON array like ` +
			`[{"title":"Diversify Revenue Streams","description":"..."}, ...].` + jsonOnly,
		Shape: ShapeArray,
	}
	quizTask = Task{
		Name:  TaskQuiz,
		Query: "key facts figures highlights of the annual report",
		Instruction: `Write a multiple choice quiz of exactly 10 questions about the report. Return a JSON object like ` +
			`{"questions":[{"id":1,"question":"What was the revenue in FY2023?",` +
			`"choices":{"A":"INR 100 Million","B":"INR 200 Million","C":"INR 300 Million","D":"INR 400 Million"},` +
			`"correct_answer":"B"}, ...]}. Ids run from 1 to 10, every question has exactly the choices A, B, C and D, ` +
			`and correct_answer is one of those labels.` + jsonOnly,
		Shape: ShapeObject,
	}
)

// explainInstruction asks only for an explanation; correctness is decided locally.
func explainInstruction(question, correctLabel, correctText, selected string) string {
	var sb strings.Builder
	sb.WriteString("A quiz about the report asked: ")
	sb.WriteString(question)
	sb.WriteString("\nThe correct answer is ")
	sb.WriteString(correctLabel)
	sb.WriteString(": ")
	sb.WriteString(correctText)
	sb.WriteString(".\nThe participant chose ")
	sb.WriteString(selected)
	sb.WriteString(".\nExplain briefly, using the context, why the correct answer is correct. ")
	sb.WriteString(`Return a JSON object like {"explanation":"..."}.`)
	sb.WriteString(jsonOnly)
	return sb.String()
}
