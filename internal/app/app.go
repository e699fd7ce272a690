package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizcraft_backend/internal/config"
	"quizcraft_backend/internal/controller"
	"quizcraft_backend/internal/qtype"
	"quizcraft_backend/internal/repository"
	"quizcraft_backend/internal/scoring"
	"quizcraft_backend/internal/service"
	"quizcraft_backend/pkg/clock"
	"quizcraft_backend/pkg/database"
	"quizcraft_backend/pkg/logger"
	"quizcraft_backend/pkg/monitoring"
	"quizcraft_backend/pkg/security"
	"quizcraft_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	assessment *repository.AssessmentRepository
	submission *repository.SubmissionRepository
	pool       *repository.PoolRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	assessment *service.AssessmentService
	pool       *service.PoolService
	submission *service.SubmissionService
	grading    *service.GradingService
}

type controllers struct {
	auth       *controller.AuthController
	assessment *controller.AssessmentController
	pool       *controller.PoolController
	submission *controller.SubmissionController
	grading    *controller.GradingController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		assessment: repository.NewAssessmentRepository(db),
		submission: repository.NewSubmissionRepository(db),
		pool:       repository.NewPoolRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	clk := clock.System()
	types := qtype.NewRegistry()
	engine := scoring.NewEngine(types)

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg, clk)
	s.assessment = service.NewAssessmentService(repos.assessment, repos.submission, repos.pool, clk, rdb, db)
	s.pool = service.NewPoolService(repos.pool, types, clk)
	s.submission = service.NewSubmissionService(repos.submission, repos.assessment, repos.pool, engine, types, clk, db)
	s.grading = service.NewGradingService(repos.submission, repos.assessment, repos.user, engine, clk, db)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		assessment: controller.NewAssessmentController(s.assessment, s.submission),
		pool:       controller.NewPoolController(s.pool),
		submission: controller.NewSubmissionController(s.submission, s.storage),
		grading:    controller.NewGradingController(s.grading),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks runs the deadline sweeper: in-progress
// submissions past their deadline get force-completed even when the
// student never returns.
func (a *App) startBackgroundTasks(s *services, cfg *config.Config) {
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second)
		for range ticker.C {
			if err := s.submission.ProcessExpired(); err != nil {
				logger.Log.Error("expired submission sweep error", zap.Error(err))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("assessment-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
