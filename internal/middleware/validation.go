package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/enrollment/internal/app/models/dto"
)

// BindURI binds path parameters into obj and validates them.
// On failure it writes a 400 response and returns false.
func BindURI(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindUri(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(validationDetail(err)))
		return false
	}
	return true
}

// BindQuery binds query parameters into obj and validates them.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(validationDetail(err)))
		return false
	}
	return true
}

func validationDetail(err error) *dto.ErrorDetail {
	detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request parameters")

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return detail.WithDetails(err.Error())
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, formatValidationError(fe))
	}
	if len(verrs) == 1 {
		detail = detail.WithField(verrs[0].Field())
	}
	return detail.WithDetails(strings.Join(messages, "; "))
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
