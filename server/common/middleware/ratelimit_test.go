package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"toolhub/server/toolhub/domain"
)

type fakeCounter struct {
	count int64
	err   error
}

func (f *fakeCounter) Hit(context.Context, string, time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.count++
	return f.count, nil
}

func limitedRouter(counter hitCounter, role domain.Role) *gin.Engine {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		c.Set(ctxCallerID, "u1")
		c.Set(ctxCallerRole, string(role))
	}, RateLimit(counter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit_AnonymousBudget(t *testing.T) {
	t.Parallel()

	counter := &fakeCounter{}
	r := limitedRouter(counter, domain.RoleAnonymous)

	for i := 0; i < anonymousRateLimit; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("over budget: expected 429, got %d", w.Code)
	}
}

func TestRateLimit_UserBudgetIsLarger(t *testing.T) {
	t.Parallel()

	counter := &fakeCounter{count: anonymousRateLimit}
	r := limitedRouter(counter, domain.RoleUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 under the user budget, got %d", w.Code)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()

	r := limitedRouter(&fakeCounter{err: errors.New("redis down")}, domain.RoleAnonymous)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected fail-open 200, got %d", w.Code)
	}
}
