package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/config"
	"manhaj_backend/internal/controller"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/service"
	"manhaj_backend/pkg/configwatcher"
	"manhaj_backend/pkg/database"
	"manhaj_backend/pkg/logger"
	"manhaj_backend/pkg/monitoring"
	"manhaj_backend/pkg/security"
	"manhaj_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services *services
	cron     *cron.Cron
	tracer   *sdktrace.TracerProvider

	mu              sync.RWMutex
	allowedOrigins  []string
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user          *repository.UserRepository
	passwordReset *repository.PasswordResetRepository
	category      *repository.CategoryRepository
	course        *repository.CourseRepository
	lesson        *repository.LessonRepository
	enrollment    *repository.EnrollmentRepository
	progress      *repository.ProgressRepository
	quiz          *repository.QuizRepository
	submission    *repository.SubmissionRepository
	comment       *repository.CommentRepository
	notification  *repository.NotificationRepository
	review        *repository.ReviewRepository
	announcement  *repository.AnnouncementRepository
	setting       *repository.SettingRepository
	report        *repository.ReportRepository
}

type services struct {
	storage      *service.StorageService
	auth         *service.AuthService
	user         *service.UserService
	setting      *service.SettingService
	notification *service.NotificationService
	course       *service.CourseService
	lesson       *service.LessonService
	progress     *service.ProgressService
	enrollment   *service.EnrollmentService
	quiz         *service.QuizService
	comment      *service.CommentService
	review       *service.ReviewService
	report       *service.ReportService
	cleanup      *service.CleanupService
}

type controllers struct {
	health       *controller.HealthController
	auth         *controller.AuthController
	user         *controller.UserController
	course       *controller.CourseController
	lesson       *controller.LessonController
	enrollment   *controller.EnrollmentController
	quiz         *controller.QuizController
	comment      *controller.CommentController
	notification *controller.NotificationController
	review       *controller.ReviewController
	admin        *controller.AdminController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// origins 供 CORS 中间件读取，热加载后立即生效
func (a *App) origins() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.allowedOrigins
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		passwordReset: repository.NewPasswordResetRepository(db),
		category:      repository.NewCategoryRepository(db),
		course:        repository.NewCourseRepository(db),
		lesson:        repository.NewLessonRepository(db),
		enrollment:    repository.NewEnrollmentRepository(db),
		progress:      repository.NewProgressRepository(db),
		quiz:          repository.NewQuizRepository(db),
		submission:    repository.NewSubmissionRepository(db),
		comment:       repository.NewCommentRepository(db),
		notification:  repository.NewNotificationRepository(db),
		review:        repository.NewReviewRepository(db),
		announcement:  repository.NewAnnouncementRepository(db),
		setting:       repository.NewSettingRepository(db),
		report:        repository.NewReportRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{}

	provider, err := service.NewStorageProvider(&cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.storage = service.NewStorageService(provider, cfg.Storage.MaxUploadBytes())

	cache := service.NewCache(rdb)
	s.notification = service.NewNotificationService(repos.notification, cache)
	s.setting = service.NewSettingService(repos.setting, cfg.Platform)

	s.auth = service.NewAuthService(db, repos.user, repos.passwordReset, service.NewMailer(&cfg.Mail), cfg)
	s.user = service.NewUserService(repos.user)

	s.course = service.NewCourseService(db, repos.course, repos.category, s.storage)
	s.lesson = service.NewLessonService(db, repos.course, repos.lesson)
	s.progress = service.NewProgressService(db, repos.course, repos.lesson, repos.progress)
	s.enrollment = service.NewEnrollmentService(
		db,
		repos.course,
		repos.enrollment,
		repos.progress,
		repos.user,
		s.setting,
		s.notification,
	)
	s.quiz = service.NewQuizService(
		db,
		repos.lesson,
		repos.quiz,
		repos.submission,
		repos.enrollment,
		s.storage,
		s.notification,
	)
	s.comment = service.NewCommentService(db, repos.lesson, repos.comment, s.notification)
	s.review = service.NewReviewService(
		db,
		repos.course,
		repos.review,
		repos.announcement,
		repos.enrollment,
		s.notification,
	)
	s.report = service.NewReportService(repos.report, cache)
	s.cleanup = service.NewCleanupService(repos.submission, s.storage, cfg.Cleanup.RetentionDays)

	return s, nil
}

func (a *App) initControllers(s *services, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		health:       controller.NewHealthController(db, rdb, cfg.Storage.Type),
		auth:         controller.NewAuthController(s.auth),
		user:         controller.NewUserController(s.user, s.auth),
		course:       controller.NewCourseController(s.course),
		lesson:       controller.NewLessonController(s.lesson, s.progress),
		enrollment:   controller.NewEnrollmentController(s.enrollment),
		quiz:         controller.NewQuizController(s.quiz),
		comment:      controller.NewCommentController(s.comment),
		notification: controller.NewNotificationController(s.notification),
		review:       controller.NewReviewController(s.review),
		admin:        controller.NewAdminController(s.report, s.setting),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(logger.RequestLogger())
	router.Use(security.CORS(a.origins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services, repos *repositories, cfg *config.Config) error {
	c, err := s.cleanup.Schedule(cfg.Cleanup.Schedule)
	if err != nil {
		return err
	}

	// 过期的重置令牌每小时清理一次
	_, err = c.AddFunc("@hourly", func() {
		removed, err := repos.passwordReset.DeleteExpired(time.Now())
		if err != nil {
			logger.Log.Error("password reset cleanup failed", zap.Error(err))
			return
		}
		if removed > 0 {
			logger.Log.Info("expired password reset tokens removed", zap.Int64("count", removed))
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	a.cron = c
	return nil
}

// watchConfig 配置文件变更后刷新平台默认设置和 CORS 白名单
func (a *App) watchConfig(cfg *config.Config) {
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		a.services.setting.SetDefaults(newCfg.Platform)
	})
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		a.mu.Lock()
		a.allowedOrigins = newCfg.CORS.AllowedOrigins
		a.mu.Unlock()
	})

	path := filepath.Join(cfg.Dir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		logger.Log.Info("config file not found, hot reload disabled", zap.String("path", path))
		return
	}

	go func() {
		err := configwatcher.WatchConfig(path, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
			logger.Log.Info("configuration reloaded", zap.String("path", path))
		})
		if err != nil {
			logger.Log.Error("config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db, cfg); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config:         cfg,
		DB:             db,
		allowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, cfg, db, rdb)
	loader := access.NewLoader(repos.course, repos.enrollment)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(context.Background(), "manhaj-backend", cfg.Tracing.CollectorEndpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	router.MaxMultipartMemory = 8 << 20
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, loader, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	if err := app.startBackgroundTasks(services, repos, cfg); err != nil {
		logger.Log.Fatal("Failed to schedule background tasks", zap.Error(err))
	}
	app.watchConfig(cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:         ":" + a.Config.Server.Port,
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// 等待正在执行的清理任务结束
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
