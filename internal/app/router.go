package app

import (
	"quizcraft_backend/docs"
	"quizcraft_backend/internal/config"
	"quizcraft_backend/internal/middleware"
	"quizcraft_backend/internal/model"

	"quizcraft_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
	router.GET("/health", c.health.HealthCheck)
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)

	group.GET("/assessments", c.assessment.Available)
	group.POST("/assessments/:assessmentId/enter", c.submission.Enter)
	group.GET("/assessments/:assessmentId/tries", c.submission.RemainingTries)

	submissions := group.Group("/submissions")
	{
		submissions.GET("/:id", c.submission.Get)
		submissions.GET("/:id/questions", c.submission.Questions)
		submissions.PUT("/:id/answers", c.submission.SubmitAnswers)
		submissions.POST("/:id/complete", c.submission.Complete)
		submissions.POST("/:id/attachments", c.submission.UploadAttachment)
		submissions.GET("/:id/review", c.grading.Review)
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		assessments := teacher.Group("/assessments")
		{
			assessments.POST("", c.assessment.Create)
			assessments.GET("", c.assessment.List)
			assessments.GET("/:id", c.assessment.Get)
			assessments.PUT("/:id", c.assessment.Update)
			assessments.POST("/:id/publish", c.assessment.Publish)
			assessments.POST("/:id/unpublish", c.assessment.Unpublish)
			assessments.POST("/:id/archive", c.assessment.Archive)
			assessments.PUT("/:id/special-access", c.assessment.SetSpecialAccess)
			assessments.GET("/:id/special-access", c.assessment.ListSpecialAccess)
			assessments.DELETE("/:id/special-access/:userId", c.assessment.RemoveSpecialAccess)
			assessments.DELETE("/:id/phantoms", c.assessment.PurgePhantoms)
		}

		pools := teacher.Group("/pools")
		{
			pools.POST("", c.pool.Create)
			pools.GET("", c.pool.List)
			pools.GET("/:id", c.pool.Get)
			pools.PUT("/:id", c.pool.Update)
			pools.GET("/:id/questions", c.pool.ListQuestions)
		}

		questions := teacher.Group("/questions")
		{
			questions.POST("", c.pool.CreateQuestion)
			questions.GET("/:id", c.pool.GetQuestion)
			questions.PUT("/:id", c.pool.UpdateQuestion)
			questions.DELETE("/:id", c.pool.DeleteQuestion)
		}
	}

	grading := group.Group("/grading")
	grading.Use(middleware.RoleMiddleware(model.Teacher))
	{
		grading.PUT("/submissions/:id/evaluate", c.grading.Evaluate)
		grading.DELETE("/submissions/:id/evaluate", c.grading.ClearEvaluation)
		grading.PUT("/assessments/:assessmentId/evaluate", c.grading.EvaluateBatch)
		grading.POST("/assessments/:assessmentId/release", c.grading.Release)
		grading.GET("/assessments/:assessmentId/official", c.grading.Official)
		grading.GET("/assessments/:assessmentId/export", c.grading.Export)
	}
}
