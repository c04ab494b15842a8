package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/enrollment/internal/app/controllers"
	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/middleware"
)

// SetupRouter configures all application routes.
// rateLimit may be nil when throttling is disabled.
func SetupRouter(
	router *gin.Engine,
	enrollmentController *controllers.EnrollmentController,
	courseController *controllers.CourseController,
	adminController *controllers.AdminController,
	authMiddleware *middleware.AuthMiddleware,
	rateLimit gin.HandlerFunc,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	student := string(models.RoleStudent)
	instructor := string(models.RoleInstructor)

	// Student routes
	courses := authenticated.Group("/courses")
	{
		selection := courses.Group("/:id/selection")
		selection.Use(authMiddleware.RoleRequired(student))
		if rateLimit != nil {
			selection.Use(rateLimit)
		}
		{
			selection.POST("", enrollmentController.SelectCourse)
			selection.DELETE("", enrollmentController.DropCourse)
		}

		courses.GET("/:id/conflicts/personal", authMiddleware.RoleRequired(student), enrollmentController.CheckPersonalConflicts)

		// Instructor routes within courses
		staff := courses.Group("")
		staff.Use(authMiddleware.RoleRequired(instructor))
		{
			staff.GET("/:id/roster", courseController.GetRoster)
			staff.GET("/:id/roster/export", courseController.ExportRoster)
			staff.GET("/:id/conflicts", courseController.GetCourseConflicts)
		}
	}

	me := authenticated.Group("/me")
	me.Use(authMiddleware.RoleRequired(student))
	{
		me.GET("/selections", enrollmentController.ListMySelections)
		me.GET("/timetable", enrollmentController.GetMyTimetable)
	}

	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.RoleRequired(instructor))
	{
		admin.POST("/reconcile", adminController.Reconcile)
	}
}
