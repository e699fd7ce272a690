package controller

import (
	"quizcraft_backend/internal/service"
	"quizcraft_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PoolController struct {
	Service *service.PoolService
}

func NewPoolController(svc *service.PoolService) *PoolController {
	return &PoolController{Service: svc}
}

// @Summary Create a question pool
// @Tags pools
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.PoolRequest true "Pool"
// @Success 201 {object} util.Response
// @Router /api/teacher/pools [post]
func (c *PoolController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	var req service.PoolRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	p, err := c.Service.CreatePool(user.UserID, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, p)
}

// @Summary Get a pool with its questions
// @Tags pools
// @Produce json
// @Security BearerAuth
// @Param id path int true "Pool ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/pools/{id} [get]
func (c *PoolController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	p, err := c.Service.GetPool(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary Update a pool
// @Tags pools
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Pool ID"
// @Param body body service.PoolRequest true "Pool"
// @Success 200 {object} util.Response
// @Router /api/teacher/pools/{id} [put]
func (c *PoolController) Update(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.PoolRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	p, err := c.Service.UpdatePool(id, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary List pools
// @Tags pools
// @Produce json
// @Security BearerAuth
// @Param context query string false "Course context"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response
// @Router /api/teacher/pools [get]
func (c *PoolController) List(ctx *gin.Context) {
	page, limit := pagination(ctx)
	pools, total, err := c.Service.ListPools(ctx.Query("context"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: pools, Total: total, Page: page, Limit: limit})
}

// @Summary Create a question in a pool
// @Tags pools
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.QuestionRequest true "Question"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response "unknown question type"
// @Router /api/teacher/questions [post]
func (c *PoolController) CreateQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q, err := c.Service.CreateQuestion(req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary Update a question
// @Tags pools
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Question ID"
// @Param body body service.QuestionRequest true "Question"
// @Success 200 {object} util.Response
// @Router /api/teacher/questions/{id} [put]
func (c *PoolController) UpdateQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q, err := c.Service.UpdateQuestion(id, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary Get a question
// @Tags pools
// @Produce json
// @Security BearerAuth
// @Param id path int true "Question ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/questions/{id} [get]
func (c *PoolController) GetQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	q, err := c.Service.GetQuestion(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary Delete a question
// @Tags pools
// @Produce json
// @Security BearerAuth
// @Param id path int true "Question ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/questions/{id} [delete]
func (c *PoolController) DeleteQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Service.DeleteQuestion(id); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary List questions of a pool
// @Tags pools
// @Produce json
// @Security BearerAuth
// @Param id path int true "Pool ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/pools/{id}/questions [get]
func (c *PoolController) ListQuestions(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	qs, err := c.Service.ListQuestions(id)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}
