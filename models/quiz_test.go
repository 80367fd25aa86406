package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func quizJSON(n int, mutate func(i int, q map[string]any)) string {
	questions := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		q := map[string]any{
			"id":       i,
			"question": fmt.Sprintf("Question %d?", i),
			"choices": map[string]any{
				"A": "first", "B": "second", "C": "third", "D": "fourth",
			},
			"correct_answer": "B",
		}
		if mutate != nil {
			mutate(i, q)
		}
		questions = append(questions, q)
	}
	b, _ := json.Marshal(map[string]any{"questions": questions})
	return string(b)
}

func TestQuestionsFromUntrustedAcceptsValidQuiz(t *testing.T) {
	t.Parallel()
	got, err := QuestionsFromUntrusted(decode(t, quizJSON(QuizSize, nil)))
	if err != nil {
		t.Fatalf("QuestionsFromUntrusted: %v", err)
	}
	if len(got) != QuizSize {
		t.Fatalf("len: got=%d want=%d", len(got), QuizSize)
	}
	if got[3].ID != 4 || got[3].CorrectAnswer != "B" || got[3].Choices["D"] != "fourth" {
		t.Fatalf("unexpected question: %+v", got[3])
	}
}

func TestQuestionsFromUntrustedAcceptsBareArray(t *testing.T) {
	t.Parallel()
	obj := decode(t, quizJSON(QuizSize, nil)).(map[string]any)
	if _, err := QuestionsFromUntrusted(obj["questions"]); err != nil {
		t.Fatalf("bare array should be accepted: %v", err)
	}
}

func TestQuestionsFromUntrustedRejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"nine questions", quizJSON(9, nil), "expected 10 questions"},
		{"eleven questions", quizJSON(11, nil), "expected 10 questions"},
		{"answer E", quizJSON(QuizSize, func(i int, q map[string]any) {
			if i == 5 {
				q["correct_answer"] = "E"
			}
		}), "not one of the choice labels"},
		{"three choices", quizJSON(QuizSize, func(i int, q map[string]any) {
			if i == 2 {
				q["choices"] = map[string]any{"A": "x", "B": "y", "C": "z"}
			}
		}), "expected 4 choices"},
		{"empty choice", quizJSON(QuizSize, func(i int, q map[string]any) {
			if i == 7 {
				q["choices"] = map[string]any{"A": "x", "B": "y", "C": "z", "D": " "}
			}
		}), "choice D"},
		{"wrong label", quizJSON(QuizSize, func(i int, q map[string]any) {
			if i == 1 {
				q["choices"] = map[string]any{"A": "x", "B": "y", "C": "z", "E": "w"}
			}
		}), "choice D"},
		{"duplicate id", quizJSON(QuizSize, func(i int, q map[string]any) {
			if i == 10 {
				q["id"] = 1
			}
		}), "duplicate id"},
		{"id out of range", quizJSON(QuizSize, func(i int, q map[string]any) {
			if i == 10 {
				q["id"] = 11
			}
		}), "out of range"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := QuestionsFromUntrusted(decode(t, tc.raw))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: got=%q want substring %q", err, tc.want)
			}
		})
	}
}

func TestQuizQuestionLookup(t *testing.T) {
	t.Parallel()
	questions, err := QuestionsFromUntrusted(decode(t, quizJSON(QuizSize, nil)))
	if err != nil {
		t.Fatalf("QuestionsFromUntrusted: %v", err)
	}
	quiz := &Quiz{ID: "q1", Questions: questions}
	if _, ok := quiz.Question(10); !ok {
		t.Fatalf("question 10 should exist")
	}
	if _, ok := quiz.Question(42); ok {
		t.Fatalf("question 42 should not exist")
	}
}
