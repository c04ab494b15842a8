package controllers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/yigit/enrollment/internal/app/models/dto"
	"github.com/yigit/enrollment/internal/app/services"
	"github.com/yigit/enrollment/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CourseController serves staff views of a course
type CourseController struct {
	enrollmentService services.EnrollmentService
	conflictService   services.ConflictService
	exportService     services.RosterExportService
}

// NewCourseController creates a new CourseController
func NewCourseController(
	enrollmentService services.EnrollmentService,
	conflictService services.ConflictService,
	exportService services.RosterExportService,
) *CourseController {
	return &CourseController{
		enrollmentService: enrollmentService,
		conflictService:   conflictService,
		exportService:     exportService,
	}
}

// GetRoster lists the active selections of a course
// @Summary Course roster
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]dto.SelectionResponse}
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/roster [get]
func (c *CourseController) GetRoster(ctx *gin.Context) {
	var uri dto.CourseURI
	if !middleware.BindURI(ctx, &uri) {
		return
	}

	sels, err := c.enrollmentService.ListActiveForCourse(ctx.Request.Context(), uri.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewSelectionListResponse(sels)))
}

// ExportRoster downloads the roster as an xlsx workbook
func (c *CourseController) ExportRoster(ctx *gin.Context) {
	var uri dto.CourseURI
	if !middleware.BindURI(ctx, &uri) {
		return
	}

	buf, filename, err := c.exportService.ExportRoster(ctx.Request.Context(), uri.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Description", "File Transfer")
	ctx.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	ctx.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetCourseConflicts reports teacher and classroom clashes of a course
func (c *CourseController) GetCourseConflicts(ctx *gin.Context) {
	var uri dto.CourseURI
	if !middleware.BindURI(ctx, &uri) {
		return
	}

	resp, err := c.conflictService.DescribeCourseConflicts(ctx.Request.Context(), uri.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
