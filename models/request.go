package models

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// CheckAnswerRequest is the body of POST /check-answer. QuizID is optional;
// when set it must name the quiz currently held by the session.
type CheckAnswerRequest struct {
	QuestionID     int    `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	QuizID         string `json:"quiz_id,omitempty"`
}
