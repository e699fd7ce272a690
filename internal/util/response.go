package util

import (
	"errors"
	"net/http"

	"quizcraft_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the uniform JSON envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse wraps paginated lists.
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// DomainError maps engine errors onto HTTP statuses. Delivery errors are
// recoverable and reported as such; anything unmapped is a server fault.
func DomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAssessmentClosed):
		Error(c, http.StatusGone, err.Error())
	case errors.Is(err, ErrAssessmentCompleted):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrSubmissionCompleted), errors.Is(err, ErrSubmissionInProgress):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrAssessmentLocked):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		Forbidden(c)
	case errors.Is(err, ErrAssessmentNotFound),
		errors.Is(err, ErrSubmissionNotFound),
		errors.Is(err, ErrPoolNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrUserNotFound):
		NotFound(c)
	case errors.Is(err, ErrInvalidPart),
		errors.Is(err, ErrEmailRegistered),
		errors.Is(err, ErrUnknownQuestionType):
		BadRequest(c, err.Error())
	default:
		LogInternalError(c, err)
	}
}
