package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"toolhub/server/toolhub/domain"
)

type activityRecorder interface {
	Record(ctx context.Context, entry domain.ActivityEntry)
}

// ObserveActivity records every request after it completes, success or not.
// Recording runs detached from the request so accounting can never delay or
// fail the caller's response.
func ObserveActivity(recorder activityRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		entry := domain.ActivityEntry{
			ID:         uuid.NewString(),
			Endpoint:   endpoint,
			Method:     c.Request.Method,
			CallerID:   Identity(c).ID,
			RemoteAddr: c.ClientIP(),
			Status:     c.Writer.Status(),
			At:         time.Now(),
		}
		go recorder.Record(context.WithoutCancel(c.Request.Context()), entry)
	}
}
