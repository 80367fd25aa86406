package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// QuizSize is the exact number of questions a generated quiz must carry.
const QuizSize = 10

// ChoiceLabels are the only labels a question may use, all four required.
var ChoiceLabels = []string{"A", "B", "C", "D"}

type Question struct {
	ID            int               `json:"id"`
	Question      string            `json:"question"`
	Choices       map[string]string `json:"choices"`
	CorrectAnswer string            `json:"correct_answer"`
}

// Quiz is bound to the index it was generated from.
type Quiz struct {
	ID        string
	IndexID   string
	Questions []Question
	CreatedAt time.Time
}

// Question looks a question up by its id.
func (q *Quiz) Question(id int) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// QuestionsFromUntrusted validates model output as a quiz: either a bare
// array or an object with a "questions" array. Nothing is repaired; any
// deviation is an error.
func QuestionsFromUntrusted(v any) ([]Question, error) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		arr, ok := t["questions"].([]any)
		if !ok {
			return nil, fmt.Errorf("quiz: object has no questions array")
		}
		items = arr
	default:
		return nil, fmt.Errorf("quiz: expected array or object, got %s", kindOf(v))
	}
	if len(items) != QuizSize {
		return nil, fmt.Errorf("quiz: expected %d questions, got %d", QuizSize, len(items))
	}

	seen := make(map[int]bool, QuizSize)
	out := make([]Question, 0, QuizSize)
	for i, item := range items {
		q, err := questionFromUntrusted(item)
		if err != nil {
			return nil, fmt.Errorf("quiz question %d: %w", i+1, err)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("quiz question %d: duplicate id %d", i+1, q.ID)
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out, nil
}

func questionFromUntrusted(v any) (Question, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Question{}, fmt.Errorf("expected object, got %s", kindOf(v))
	}

	rawID, ok := obj["id"].(float64)
	if !ok || rawID != math.Trunc(rawID) {
		return Question{}, fmt.Errorf("id must be an integer")
	}
	id := int(rawID)
	if id < 1 || id > QuizSize {
		return Question{}, fmt.Errorf("id %d out of range 1..%d", id, QuizSize)
	}

	text, ok := obj["question"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return Question{}, fmt.Errorf("question text is missing")
	}

	rawChoices, ok := obj["choices"].(map[string]any)
	if !ok {
		return Question{}, fmt.Errorf("choices must be an object")
	}
	if len(rawChoices) != len(ChoiceLabels) {
		return Question{}, fmt.Errorf("expected %d choices, got %d", len(ChoiceLabels), len(rawChoices))
	}
	choices := make(map[string]string, len(ChoiceLabels))
	for _, label := range ChoiceLabels {
		c, ok := rawChoices[label].(string)
		if !ok || strings.TrimSpace(c) == "" {
			return Question{}, fmt.Errorf("choice %s is missing or empty", label)
		}
		choices[label] = strings.TrimSpace(c)
	}

	answer, ok := obj["correct_answer"].(string)
	if !ok {
		return Question{}, fmt.Errorf("correct_answer must be a string")
	}
	answer = strings.TrimSpace(answer)
	if _, ok := choices[answer]; !ok {
		return Question{}, fmt.Errorf("correct_answer %q is not one of the choice labels", answer)
	}

	return Question{
		ID:            id,
		Question:      strings.TrimSpace(text),
		Choices:       choices,
		CorrectAnswer: answer,
	}, nil
}
