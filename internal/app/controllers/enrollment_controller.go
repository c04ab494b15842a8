package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/enrollment/internal/app/models/dto"
	"github.com/yigit/enrollment/internal/app/services"
	"github.com/yigit/enrollment/internal/middleware"
)

// EnrollmentController handles the student side of course selection
type EnrollmentController struct {
	enrollmentService services.EnrollmentService
	conflictService   services.ConflictService
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(enrollmentService services.EnrollmentService, conflictService services.ConflictService) *EnrollmentController {
	return &EnrollmentController{
		enrollmentService: enrollmentService,
		conflictService:   conflictService,
	}
}

// SelectCourse takes a seat in a course for the authenticated student
// @Summary Select a course
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SelectionResponse}
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Failure 409 {object} dto.ErrorResponse "Already selected, course full or schedule conflict"
// @Failure 503 {object} dto.ErrorResponse "Storage temporarily unavailable"
// @Router /courses/{id}/selection [post]
func (c *EnrollmentController) SelectCourse(ctx *gin.Context) {
	studentID, courseID, ok := studentAndCourse(ctx)
	if !ok {
		return
	}

	sel, err := c.enrollmentService.Select(ctx.Request.Context(), studentID, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewSelectionResponse(sel)))
}

// DropCourse releases the authenticated student's seat
// @Summary Drop a course
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SelectionResponse}
// @Failure 404 {object} dto.ErrorResponse "Course or selection not found"
// @Failure 409 {object} dto.ErrorResponse "Already dropped or completed"
// @Router /courses/{id}/selection [delete]
func (c *EnrollmentController) DropCourse(ctx *gin.Context) {
	studentID, courseID, ok := studentAndCourse(ctx)
	if !ok {
		return
	}

	sel, err := c.enrollmentService.Drop(ctx.Request.Context(), studentID, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewSelectionResponse(sel)))
}

// ListMySelections returns the student's active selections
func (c *EnrollmentController) ListMySelections(ctx *gin.Context) {
	studentID, ok := currentStudent(ctx)
	if !ok {
		return
	}

	sels, err := c.enrollmentService.ListActiveForStudent(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Success:   true,
		Data:      dto.NewSelectionListResponse(sels),
		Timestamp: time.Now(),
	})
}

// GetMyTimetable returns the student's weekly timetable
func (c *EnrollmentController) GetMyTimetable(ctx *gin.Context) {
	studentID, ok := currentStudent(ctx)
	if !ok {
		return
	}

	entries, err := c.conflictService.StudentTimetable(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(entries))
}

// CheckPersonalConflicts previews clashes between a course and the student's timetable
func (c *EnrollmentController) CheckPersonalConflicts(ctx *gin.Context) {
	studentID, courseID, ok := studentAndCourse(ctx)
	if !ok {
		return
	}

	resp, err := c.conflictService.CheckPersonalConflicts(ctx.Request.Context(), studentID, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

func currentStudent(ctx *gin.Context) (int64, bool) {
	id, ok := middleware.CurrentUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		errorDetail = errorDetail.WithDetails("User information not found")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

func studentAndCourse(ctx *gin.Context) (int64, int64, bool) {
	studentID, ok := currentStudent(ctx)
	if !ok {
		return 0, 0, false
	}
	var uri dto.CourseURI
	if !middleware.BindURI(ctx, &uri) {
		return 0, 0, false
	}
	return studentID, uri.ID, true
}
