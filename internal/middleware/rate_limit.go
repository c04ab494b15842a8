package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimit "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/yigit/enrollment/internal/app/models/dto"
)

const rateLimitPrefix = "enrollment:ratelimit"

// NewRateStore creates the limiter store. A redis client shares counters
// between instances; without one counters live in process memory.
func NewRateStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix}), nil
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate store: %w", err)
	}
	return store, nil
}

// RateLimit throttles requests per authenticated user, falling back to client IP.
// rate uses the limiter format, e.g. "30-M".
func RateLimit(store limiter.Store, rate string) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", rate, err)
	}

	return ginlimit.NewMiddleware(
		limiter.New(store, r),
		ginlimit.WithKeyGetter(rateLimitKey),
		ginlimit.WithLimitReachedHandler(func(c *gin.Context) {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeRateLimitExceeded, "Too many requests")
			errorDetail = errorDetail.WithSeverity(dto.ErrorSeverityWarning)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(errorDetail))
		}),
	), nil
}

func rateLimitKey(c *gin.Context) string {
	if id, ok := CurrentUserID(c); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + c.ClientIP()
}
