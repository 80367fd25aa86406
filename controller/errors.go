package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github/itish2003/finrag/models"
	"github/itish2003/finrag/services"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrStaleQuiz):
		return http.StatusConflict
	case services.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"detail": ...}. Client errors carry their own message;
// server errors get the generic one so internals stay in the logs.
func respondError(ctx *gin.Context, err error, generic string) {
	status := statusFor(err)
	detail := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", ctx.FullPath()).Str("request_id", ctx.GetString(requestIDKey)).Msg("CONTROLLER: request failed")
		detail = generic
	}
	ctx.JSON(status, models.ErrorResponse{Detail: detail})
}

func badRequest(ctx *gin.Context, detail string) {
	ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: detail})
}
