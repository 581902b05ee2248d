package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"toolhub/server/common/log"
	"toolhub/server/common/transport/httpresp"
)

const (
	rateWindow         = time.Minute
	anonymousRateLimit = 30
	userRateLimit      = 120
)

type hitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit enforces a fixed per-minute request budget, tiered by caller:
// anonymous callers share a per-IP budget, authenticated callers get a
// larger per-user one. A broken counter backend fails open.
func RateLimit(counter hitCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Identity(c)
		key := "rate:ip:" + c.ClientIP()
		limit := int64(anonymousRateLimit)
		if identity.Authenticated() {
			key = "rate:user:" + identity.ID
			limit = userRateLimit
		}

		count, err := counter.Hit(c.Request.Context(), key, rateWindow)
		if err != nil {
			log.Warnf("rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}
		if count > limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httpresp.NewErrorResponse(httpresp.ErrTooManyRequests))
			return
		}
		c.Next()
	}
}
