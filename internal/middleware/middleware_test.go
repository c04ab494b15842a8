package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/yigit/enrollment/internal/app/models/dto"
	"github.com/yigit/enrollment/internal/pkg/apperrors"
	"github.com/yigit/enrollment/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "enrollment.test",
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorDetail {
	t.Helper()
	var body struct {
		Error *dto.ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	if body.Error == nil {
		t.Fatalf("expected error in body %q", w.Body.String())
	}
	return body.Error
}

func TestJWTAuthAndRoleRequired(t *testing.T) {
	jwtService := newJWTService()
	m := NewAuthMiddleware(jwtService)

	router := gin.New()
	router.GET("/student", m.JWTAuth(), func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	router.GET("/staff", m.JWTAuth(), m.RoleRequired("INSTRUCTOR"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	studentToken, err := jwtService.GenerateToken(42, "s42@uni.edu", "STUDENT")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		header string
		status int
		code   dto.ErrorCode
	}{
		{"missing header", "/student", "", http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{"bad scheme", "/student", "Basic abc", http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{"garbage token", "/student", "Bearer a.b.c", http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{"valid bearer", "/student", "Bearer " + studentToken, http.StatusOK, ""},
		{"valid raw", "/student", studentToken, http.StatusOK, ""},
		{"wrong role", "/staff", "Bearer " + studentToken, http.StatusForbidden, dto.ErrorCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.status, w.Body.String())
			}
			if tt.code != "" {
				if got := decodeError(t, w).Code; got != tt.code {
					t.Fatalf("code = %s, want %s", got, tt.code)
				}
			}
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   dto.ErrorCode
	}{
		{apperrors.ErrCourseNotFound, http.StatusNotFound, dto.ErrorCodeCourseNotFound},
		{apperrors.ErrSelectionNotFound, http.StatusNotFound, dto.ErrorCodeSelectionNotFound},
		{apperrors.ErrAlreadySelected, http.StatusConflict, dto.ErrorCodeAlreadySelected},
		{apperrors.ErrAlreadyDropped, http.StatusConflict, dto.ErrorCodeAlreadyDropped},
		{apperrors.ErrSelectionCompleted, http.StatusConflict, dto.ErrorCodeSelectionCompleted},
		{fmt.Errorf("%w: 30 of 30 seats taken", apperrors.ErrCourseFull), http.StatusConflict, dto.ErrorCodeCourseFull},
		{apperrors.ErrTimeConflict, http.StatusConflict, dto.ErrorCodeTimeConflict},
		{apperrors.NewValidationError("courseId", "course ID must be positive"), http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{fmt.Errorf("%w: %w", apperrors.ErrTransientStorage, errors.New("timeout")), http.StatusServiceUnavailable, dto.ErrorCodeDatabaseError},
		{apperrors.ErrConsistencyViolation, http.StatusInternalServerError, dto.ErrorCodeConsistencyViolated},
		{errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			detail := decodeError(t, w)
			if detail.Code != tt.code {
				t.Fatalf("code = %s, want %s", detail.Code, tt.code)
			}
			if tt.code == dto.ErrorCodeValidationFailed && detail.Field != "courseId" {
				t.Fatalf("field = %q, want courseId", detail.Field)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	if generated == "" || w.Body.String() != generated {
		t.Fatalf("expected generated request id, header %q body %q", generated, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected incoming id to be kept, got %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	limit, err := RateLimit(memory.NewStore(), "2-M")
	if err != nil {
		t.Fatalf("RateLimit: %v", err)
	}

	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		c.Set(ContextUserID, int64(7))
		c.Next()
	}, limit, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		if w.Code != want {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, want)
		}
		if want == http.StatusTooManyRequests {
			if got := decodeError(t, w).Code; got != dto.ErrorCodeRateLimitExceeded {
				t.Fatalf("code = %s", got)
			}
		}
	}

	if _, err := RateLimit(memory.NewStore(), "lots"); err == nil {
		t.Fatal("expected error for malformed rate")
	}
}

func TestBindURI(t *testing.T) {
	type courseURI struct {
		ID int64 `uri:"id" binding:"required,min=1"`
	}

	router := gin.New()
	router.GET("/courses/:id", func(c *gin.Context) {
		var uri courseURI
		if !BindURI(c, &uri) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": uri.ID})
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/courses/12", http.StatusOK},
		{"/courses/0", http.StatusBadRequest},
		{"/courses/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d", tt.path, w.Code, tt.status)
		}
	}
}
