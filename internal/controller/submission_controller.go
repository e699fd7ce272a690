package controller

import (
	"strconv"

	"quizcraft_backend/internal/service"
	"quizcraft_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	Service *service.SubmissionService
	Storage *service.StorageService
}

func NewSubmissionController(svc *service.SubmissionService, storage *service.StorageService) *SubmissionController {
	return &SubmissionController{Service: svc, Storage: storage}
}

// @Summary Enter an assessment, resuming or starting a submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param assessmentId path int true "Assessment ID"
// @Success 201 {object} util.Response
// @Failure 409 {object} util.Response "no tries remaining"
// @Failure 410 {object} util.Response "window closed"
// @Router /api/assessments/{assessmentId}/enter [post]
func (c *SubmissionController) Enter(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := pathID(ctx, "assessmentId")
	if !ok {
		return
	}

	sub, err := c.Service.EnterSubmission(user.UserID, assessmentID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}

// @Summary List the delivered questions of a submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/questions [get]
func (c *SubmissionController) Questions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	qs, err := c.Service.DeliveredQuestions(user.UserID, id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

type submitAnswersRequest struct {
	Answers  []service.AnswerInput `json:"answers" binding:"required"`
	Complete bool                  `json:"complete"`
}

// @Summary Save answers, optionally completing the submission
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Param body body submitAnswersRequest true "Answers"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "submission already completed"
// @Failure 410 {object} util.Response "deadline passed"
// @Router /api/submissions/{id}/answers [put]
func (c *SubmissionController) SubmitAnswers(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req submitAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.SubmitAnswers(user.UserID, id, req.Answers, req.Complete); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Complete a submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/complete [post]
func (c *SubmissionController) Complete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.Service.CompleteSubmission(user.UserID, id); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Get one submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id} [get]
func (c *SubmissionController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	sub, err := c.Service.GetSubmission(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	if sub.UserID != user.UserID {
		util.Forbidden(ctx)
		return
	}
	util.Success(ctx, sub)
}

// @Summary Remaining tries for the current user on an assessment
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param assessmentId path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/assessments/{assessmentId}/tries [get]
func (c *SubmissionController) RemainingTries(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := pathID(ctx, "assessmentId")
	if !ok {
		return
	}

	remaining, err := c.Service.RemainingTries(user.UserID, assessmentID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"remaining": remaining})
}

// @Summary Upload an attachment for an answer
// @Tags submissions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Param file formData file true "Attachment"
// @Success 201 {object} util.Response
// @Router /api/submissions/{id}/attachments [post]
func (c *SubmissionController) UploadAttachment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	sub, err := c.Service.GetSubmission(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	if sub.UserID != user.UserID {
		util.Forbidden(ctx)
		return
	}
	if sub.IsComplete {
		util.DomainError(ctx, util.ErrSubmissionCompleted)
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	f, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()

	url, err := c.Storage.SaveAttachment(ctx.Request.Context(), sub.ID, header.Filename, f, header.Size)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, gin.H{"url": url})
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
