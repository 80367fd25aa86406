package models

import "time"

type StatusResponse struct {
	Indexed   bool       `json:"indexed"`
	Document  string     `json:"document,omitempty"`
	Chunks    int        `json:"chunks,omitempty"`
	IndexedAt *time.Time `json:"indexed_at,omitempty"`
	QuizReady bool       `json:"quiz_ready"`
}

type UploadResponse struct {
	Detail string `json:"detail"`
	Chunks int    `json:"chunks"`
}

type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// InsightsResponse bundles the three records the insights screen renders.
type InsightsResponse struct {
	KeyMetrics       KeyMetrics       `json:"key_metrics"`
	FinancialMetrics FinancialMetrics `json:"financial_metrics"`
	RevenueBreakdown []RevenueSegment `json:"revenue_breakdown"`
}

type QuizResponse struct {
	QuizID    string     `json:"quiz_id"`
	Questions []Question `json:"questions"`
}

type CheckAnswerResponse struct {
	QuestionID    int    `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// ErrorResponse keeps the {"detail": "..."} shape clients already parse.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
