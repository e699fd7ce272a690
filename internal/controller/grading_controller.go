package controller

import (
	"fmt"

	"quizcraft_backend/internal/service"
	"quizcraft_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradingController struct {
	Service *service.GradingService
}

func NewGradingController(svc *service.GradingService) *GradingController {
	return &GradingController{Service: svc}
}

type evaluateRequest struct {
	Score    *float64 `json:"score"`
	Comments *string  `json:"comments"`
}

// @Summary Record an evaluator override on a submission
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Param body body evaluateRequest true "Override"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "submission still in progress"
// @Router /api/grading/submissions/{id}/evaluate [put]
func (c *GradingController) Evaluate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req evaluateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.EvaluateSubmission(user.UserID, id, req.Score, req.Comments); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Clear an evaluator override
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Success 200 {object} util.Response
// @Router /api/grading/submissions/{id}/evaluate [delete]
func (c *GradingController) ClearEvaluation(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.Service.ClearEvaluation(user.UserID, id); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type evaluateBatchRequest struct {
	Comments   string   `json:"comments"`
	Adjustment *float64 `json:"adjustment"`
}

// @Summary Evaluate every completed submission of an assessment
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assessmentId path int true "Assessment ID"
// @Param body body evaluateBatchRequest true "Batch evaluation"
// @Success 200 {object} util.Response "per-submission outcomes"
// @Router /api/grading/assessments/{assessmentId}/evaluate [put]
func (c *GradingController) EvaluateBatch(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := pathID(ctx, "assessmentId")
	if !ok {
		return
	}
	var req evaluateBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	results, err := c.Service.EvaluateSubmissions(user.UserID, assessmentID, req.Comments, req.Adjustment)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, results)
}

type releaseRequest struct {
	EvaluatedOnly bool `json:"evaluatedOnly"`
}

// @Summary Release completed submissions for student review
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assessmentId path int true "Assessment ID"
// @Param body body releaseRequest true "Release options"
// @Success 200 {object} util.Response
// @Router /api/grading/assessments/{assessmentId}/release [post]
func (c *GradingController) Release(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := pathID(ctx, "assessmentId")
	if !ok {
		return
	}
	var req releaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	count, err := c.Service.ReleaseSubmissions(user.UserID, assessmentID, req.EvaluatedOnly)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"released": count})
}

// @Summary Review the caller's own completed submission
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "feedback not yet visible"
// @Router /api/submissions/{id}/review [get]
func (c *GradingController) Review(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.Service.Review(user.UserID, id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary List official submissions of an assessment
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Param assessmentId path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/grading/assessments/{assessmentId}/official [get]
func (c *GradingController) Official(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := pathID(ctx, "assessmentId")
	if !ok {
		return
	}

	subs, err := c.Service.OfficialSubmissions(assessmentID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}

// @Summary Export official submission scores as CSV
// @Tags grading
// @Produce text/csv
// @Security BearerAuth
// @Param assessmentId path int true "Assessment ID"
// @Success 200 {string} string "CSV payload"
// @Router /api/grading/assessments/{assessmentId}/export [get]
func (c *GradingController) Export(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := pathID(ctx, "assessmentId")
	if !ok {
		return
	}

	ctx.Header("Content-Type", "text/csv")
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=assessment-%d-scores.csv", assessmentID))
	if err := c.Service.ExportOfficialCSV(user.UserID, assessmentID, ctx.Writer); err != nil {
		util.DomainError(ctx, err)
		return
	}
}
