package app

import (
	"manhaj_backend/docs"
	"manhaj_backend/internal/config"
	"manhaj_backend/internal/middleware"
	"manhaj_backend/internal/model"
	"manhaj_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, loader middleware.PolicyLoader, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(可选登录)
	a.registerPublicRoutes(router, c, loader, cfg)

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret, loader))
	{
		a.registerUserRoutes(authGroup, c)

		// 教师相关接口
		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		a.registerTeacherRoutes(teacher, c)

		// 超级管理员接口
		admin := authGroup.Group("/admin")
		admin.Use(middleware.RoleMiddleware(model.SuperAdmin))
		a.registerAdminRoutes(admin, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, loader middleware.PolicyLoader, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/settings", c.admin.GetSettings)

		auth := public.Group("/auth")
		{
			auth.POST("/register", c.auth.Register)
			auth.POST("/login", c.auth.Login)
			auth.POST("/forgot-password", c.auth.ForgotPassword)
			auth.POST("/reset-password", c.auth.ResetPassword)
		}

		// 目录浏览允许游客；登录用户会得到访问状态
		catalog := public.Group("")
		catalog.Use(middleware.OptionalAuthMiddleware(cfg.JWT.Secret, loader))
		{
			catalog.GET("/categories", c.course.ListCategories)
			catalog.GET("/courses", c.course.ListCourses)
			catalog.GET("/courses/:id", c.course.GetCourse)
			catalog.GET("/courses/slug/:slug", c.course.GetCourseBySlug)
			catalog.GET("/courses/:id/lessons", c.lesson.ListLessons)
			catalog.GET("/courses/:id/reviews", c.review.ListReviews)
			catalog.GET("/lessons/:id", c.lesson.GetLesson)
		}
	}
}

func (a *App) registerUserRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile", c.auth.UpdateProfile)
	rg.PUT("/profile/password", c.auth.ChangePassword)

	// 课程管理：教师或超级管理员，归属在服务层校验
	manage := rg.Group("")
	manage.Use(middleware.RoleMiddleware(model.Teacher, model.SuperAdmin))
	{
		manage.PUT("/courses/:id", c.course.UpdateCourse)
		manage.DELETE("/courses/:id", c.course.DeleteCourse)
		manage.POST("/courses/:id/thumbnail", c.course.UploadThumbnail)
		manage.POST("/courses/:id/lessons", c.lesson.CreateLesson)
		manage.PUT("/courses/:id/lessons/order", c.lesson.ReorderLessons)
		manage.GET("/courses/:id/students", c.enrollment.CourseStudents)
		manage.PUT("/lessons/:id", c.lesson.UpdateLesson)
		manage.DELETE("/lessons/:id", c.lesson.DeleteLesson)
	}

	// 教师专属的写操作
	owner := rg.Group("")
	owner.Use(middleware.RoleMiddleware(model.Teacher))
	{
		owner.POST("/courses", c.course.CreateCourse)
		owner.POST("/courses/:id/announcements", c.review.CreateAnnouncement)
		owner.POST("/lessons/:id/quizzes", c.quiz.CreateQuiz)
		owner.PUT("/quizzes/:id", c.quiz.UpdateQuiz)
		owner.PATCH("/quizzes/:id/active", c.quiz.SetQuizActive)
		owner.DELETE("/quizzes/:id", c.quiz.DeleteQuiz)
		owner.GET("/quizzes/:id/submissions", c.quiz.ListSubmissions)
		owner.PUT("/submissions/:id/grade", c.quiz.GradeSubmission)
		owner.POST("/lessons/:id/comments/:commentId/replies", c.comment.ReplyQuestion)
	}

	// 学生
	student := rg.Group("")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/courses/:id/enroll", c.enrollment.Enroll)
		student.GET("/enrollments/me", c.enrollment.MyEnrollments)
		student.GET("/courses/:id/progress", c.lesson.CourseProgress)
		student.PUT("/lessons/:id/progress", c.lesson.UpdateProgress)
		student.POST("/courses/:id/reviews", c.review.CreateReview)
		student.POST("/lessons/:id/comments", c.comment.AskQuestion)
		student.POST("/quizzes/:id/submit", c.quiz.SubmitQuiz)
		student.GET("/quizzes/:id/my-submission", c.quiz.MySubmission)
	}

	// 有访问权的任何角色
	rg.GET("/courses/:id/announcements", c.review.ListAnnouncements)
	rg.GET("/lessons/:id/quizzes", c.quiz.ListQuizzes)
	rg.GET("/lessons/:id/comments", c.comment.ListComments)
	rg.DELETE("/comments/:id", c.comment.DeleteComment)

	notifications := rg.Group("/notifications")
	{
		notifications.GET("", c.notification.GetNotifications)
		notifications.GET("/unread-count", c.notification.UnreadCount)
		notifications.PATCH("/read-all", c.notification.MarkAllRead)
		notifications.POST("/:id/open", c.notification.OpenNotification)
		notifications.PATCH("/:id/read", c.notification.MarkRead)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/courses", c.course.MyCourses)
	rg.GET("/submissions/ungraded", c.quiz.UngradedSubmissions)
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/stats", c.admin.GetStats)
	rg.GET("/reports/teachers", c.admin.TeacherReport)
	rg.GET("/reports/courses", c.admin.CourseReport)
	rg.PUT("/settings", c.admin.UpdateSettings)

	rg.GET("/users", c.user.GetUsers)
	rg.GET("/users/:id", c.user.GetUser)
	rg.DELETE("/users/:id", c.user.DeleteUser)
	rg.POST("/teachers", c.user.CreateTeacher)

	rg.POST("/categories", c.course.CreateCategory)
	rg.PUT("/categories/:id", c.course.UpdateCategory)
	rg.DELETE("/categories/:id", c.course.DeleteCategory)

	rg.GET("/enrollments", c.enrollment.ListEnrollments)
	rg.PATCH("/enrollments/:id", c.enrollment.UpdateEnrollment)
}
