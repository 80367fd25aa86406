package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github/itish2003/finrag/models"
	"github/itish2003/finrag/services"
)

type QuizController struct {
	ragService services.RAGService
}

func NewQuizController(service services.RAGService) *QuizController {
	return &QuizController{ragService: service}
}

// GenerateQuiz is the handler for POST /generate-quiz.
func (c *QuizController) GenerateQuiz(ctx *gin.Context) {
	quiz, err := c.ragService.GenerateQuiz(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, "Failed to generate quiz")
		return
	}
	ctx.JSON(http.StatusOK, quiz)
}

// CheckAnswer is the handler for POST /check-answer.
func (c *QuizController) CheckAnswer(ctx *gin.Context) {
	var req models.CheckAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.SelectedAnswer) == "" {
		badRequest(ctx, "selected_answer is required")
		return
	}
	resp, err := c.ragService.CheckAnswer(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err, "Failed to check answer")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
