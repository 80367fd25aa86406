package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github/itish2003/finrag/models"
)

// GenerateQuiz asks the model for a quiz on the current report and installs it.
// Model output that fails validation is an error; nothing is repaired.
func (r *ragServiceImpl) GenerateQuiz(ctx context.Context) (*models.QuizResponse, error) {
	idx, raw, err := r.run(ctx, quizTask)
	if err != nil {
		return nil, err
	}
	questions, err := parseStrict(TaskQuiz, raw, models.QuestionsFromUntrusted)
	if err != nil {
		log.Error().Err(err).Msg("SERVICE: quiz rejected")
		return nil, err
	}

	quiz := &models.Quiz{
		ID:        uuid.NewString(),
		IndexID:   idx.ID(),
		Questions: questions,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.session.SetQuiz(quiz); err != nil {
		return nil, err
	}
	log.Info().Str("quiz", quiz.ID).Str("index", idx.ID()).Msg("SERVICE: quiz generated")
	return &models.QuizResponse{QuizID: quiz.ID, Questions: questions}, nil
}

// CheckAnswer scores by comparing labels. The model is only asked for an
// explanation; a local one replaces output that does not carry one.
func (r *ragServiceImpl) CheckAnswer(ctx context.Context, req models.CheckAnswerRequest) (*models.CheckAnswerResponse, error) {
	quiz, err := r.session.Quiz(req.QuizID)
	if err != nil {
		return nil, err
	}
	q, ok := quiz.Question(req.QuestionID)
	if !ok {
		return nil, ErrQuestionNotFound
	}

	selected := strings.ToUpper(strings.TrimSpace(req.SelectedAnswer))
	resp := &models.CheckAnswerResponse{
		QuestionID:    q.ID,
		IsCorrect:     selected == q.CorrectAnswer,
		CorrectAnswer: q.CorrectAnswer,
	}
	explanation, err := r.explain(ctx, q, selected)
	if err != nil {
		log.Error().Err(err).Int("question", q.ID).Msg("SERVICE: explanation failed")
		return nil, err
	}
	resp.Explanation = explanation
	return resp, nil
}

// explain asks the model why the correct answer is right. Output without a
// usable explanation is replaced by a local sentence; a failed call is not.
func (r *ragServiceImpl) explain(ctx context.Context, q models.Question, selected string) (string, error) {
	_, docs, err := r.retrieve(ctx, q.Question)
	if err != nil {
		return "", err
	}
	raw, err := r.llm.Complete(ctx, CompletionRequest{
		Task:   TaskExplain,
		Prompt: ComposePrompt(models.Texts(docs), explainInstruction(q.Question, q.CorrectAnswer, q.Choices[q.CorrectAnswer], selected)),
		Shape:  ShapeObject,
	})
	if err != nil {
		return "", err
	}

	ex := ExtractJSON(raw)
	if obj, ok := ex.Value.(map[string]any); ok && ex.HasJSON() {
		if text, ok := obj["explanation"].(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
	}
	log.Warn().Str("kind", ex.Kind.String()).Int("question", q.ID).Msg("SERVICE: using local explanation")
	return localExplanation(q), nil
}

func localExplanation(q models.Question) string {
	return fmt.Sprintf("The correct answer is %s: %s.", q.CorrectAnswer, strings.TrimSuffix(q.Choices[q.CorrectAnswer], "."))
}
