package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/enrollment/internal/app/models/dto"
	"github.com/yigit/enrollment/internal/app/services"
	"github.com/yigit/enrollment/internal/middleware"
)

// AdminController exposes maintenance operations
type AdminController struct {
	reconciliationService services.ReconciliationService
}

// NewAdminController creates a new AdminController
func NewAdminController(reconciliationService services.ReconciliationService) *AdminController {
	return &AdminController{
		reconciliationService: reconciliationService,
	}
}

// Reconcile recomputes every enrolled counter. With ?dryRun=true nothing is written.
// @Summary Reconcile enrolled counters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param dryRun query bool false "Report drift without repairing"
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResponse}
// @Failure 503 {object} dto.ErrorResponse "Storage temporarily unavailable"
// @Router /admin/reconcile [post]
func (c *AdminController) Reconcile(ctx *gin.Context) {
	var query dto.ReconcileQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	run := c.reconciliationService.ReconcileAll
	if query.DryRun {
		run = c.reconciliationService.VerifyAll
	}

	report, err := run(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ReconcileResponse{
		Checked:    report.Checked,
		Repaired:   report.Repaired,
		DryRun:     report.DryRun,
		Violations: report.Violations,
	}))
}
