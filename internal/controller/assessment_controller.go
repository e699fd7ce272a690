package controller

import (
	"strconv"

	"quizcraft_backend/internal/service"
	"quizcraft_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service     *service.AssessmentService
	Submissions *service.SubmissionService
}

func NewAssessmentController(svc *service.AssessmentService, subs *service.SubmissionService) *AssessmentController {
	return &AssessmentController{Service: svc, Submissions: subs}
}

// @Summary Create an assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.AssessmentRequest true "Assessment definition"
// @Success 201 {object} util.Response
// @Router /api/teacher/assessments [post]
func (c *AssessmentController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.CreateAssessment(user.UserID, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary Update an assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param body body service.AssessmentRequest true "Assessment definition"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "locked by live submissions"
// @Router /api/teacher/assessments/{id} [put]
func (c *AssessmentController) Update(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.UpdateAssessment(user.UserID, id, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary Get one assessment with its parts
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id} [get]
func (c *AssessmentController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	a, err := c.Service.GetAssessment(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary List assessments
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param context query string false "Course context"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments [get]
func (c *AssessmentController) List(ctx *gin.Context) {
	page, limit := pagination(ctx)
	as, total, err := c.Service.ListAssessments(ctx.Query("context"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: as, Total: total, Page: page, Limit: limit})
}

// @Summary Publish an assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "part cannot be satisfied"
// @Router /api/teacher/assessments/{id}/publish [post]
func (c *AssessmentController) Publish(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	a, err := c.Service.Publish(user.UserID, id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary Unpublish an assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/unpublish [post]
func (c *AssessmentController) Unpublish(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	a, err := c.Service.Unpublish(user.UserID, id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary Archive an assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/archive [post]
func (c *AssessmentController) Archive(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Service.Archive(user.UserID, id); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Student listing of currently open assessments
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param context query string false "Course context"
// @Success 200 {object} util.Response
// @Router /api/assessments [get]
func (c *AssessmentController) Available(ctx *gin.Context) {
	out, err := c.Service.GetAvailableAssessments(ctx.Request.Context(), ctx.Query("context"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, out)
}

// @Summary Grant or update special access for a user
// @Tags assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param body body service.SpecialAccessRequest true "Overrides"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/special-access [put]
func (c *AssessmentController) SetSpecialAccess(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SpecialAccessRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sa, err := c.Service.SetSpecialAccess(id, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, sa)
}

// @Summary List special-access grants for an assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/special-access [get]
func (c *AssessmentController) ListSpecialAccess(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	list, err := c.Service.ListSpecialAccess(id)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary Remove a special-access grant
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param userId path int true "User ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/special-access/{userId} [delete]
func (c *AssessmentController) RemoveSpecialAccess(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}
	if err := c.Service.RemoveSpecialAccess(id, userID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Purge phantom submissions of an assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/phantoms [delete]
func (c *AssessmentController) PurgePhantoms(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	purged, err := c.Submissions.PurgePhantoms(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"purged": purged})
}

func pagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
