package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/enrollment/internal/app/models/dto"
	"github.com/yigit/enrollment/internal/pkg/apperrors"
	"github.com/yigit/enrollment/internal/pkg/logger"
)

// HandleAPIError maps service errors to HTTP responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Str("requestId", c.GetString(ContextRequestID)).
			Int("status", status).
			Msg("Request failed")
	}
	c.JSON(status, dto.APIResponse{
		Success:   false,
		Error:     detail,
		Timestamp: timeNow(),
	})
}

func errorResponse(err error) (int, *dto.ErrorDetail) {
	switch {
	case errors.Is(err, apperrors.ErrValidationFailed):
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").WithDetails(err.Error())
		var custom *apperrors.CustomError
		if errors.As(err, &custom) {
			if field, ok := custom.Details["field"].(string); ok {
				detail = detail.WithField(field)
			}
		}
		return http.StatusBadRequest, detail

	case errors.Is(err, apperrors.ErrCourseNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeCourseNotFound, "Course not found")
	case errors.Is(err, apperrors.ErrSelectionNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeSelectionNotFound, "Selection not found")

	case errors.Is(err, apperrors.ErrAlreadySelected):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeAlreadySelected, "Course already selected")
	case errors.Is(err, apperrors.ErrAlreadyDropped):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeAlreadyDropped, "Course already dropped")
	case errors.Is(err, apperrors.ErrSelectionCompleted):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeSelectionCompleted, "Completed course cannot be dropped")
	case errors.Is(err, apperrors.ErrCourseFull):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeCourseFull, "Course is full").WithDetails(err.Error())
	case errors.Is(err, apperrors.ErrTimeConflict):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeTimeConflict, "Schedule conflict").WithDetails(err.Error())

	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")

	case errors.Is(err, apperrors.ErrConsistencyViolation):
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeConsistencyViolated, "Enrollment data is inconsistent").
			WithSeverity(dto.ErrorSeverityCritical)
	case errors.Is(err, apperrors.ErrTransientStorage):
		return http.StatusServiceUnavailable, dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "Storage temporarily unavailable, retry later")

	default:
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}
