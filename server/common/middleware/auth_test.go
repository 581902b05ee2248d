package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"toolhub/server/toolhub/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeParser struct {
	userID string
	role   string
	err    error
}

func (p *fakeParser) ParseCredential(string) (string, string, error) {
	if p.err != nil {
		return "", "", p.err
	}
	return p.userID, p.role, nil
}

func authRouter(parser credentialParser) (*gin.Engine, *domain.CallerIdentity) {
	var seen domain.CallerIdentity
	r := gin.New()
	r.GET("/", AuthOptional(parser), func(c *gin.Context) {
		seen = Identity(c)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestAuthOptional_AbsentCredentialIsAnonymous(t *testing.T) {
	t.Parallel()

	r, seen := authRouter(&fakeParser{err: errors.New("must not be called")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen.Role != domain.RoleAnonymous {
		t.Fatalf("expected anonymous identity, got %q", seen.Role)
	}
}

func TestAuthOptional_BrokenCredentialIsRejected(t *testing.T) {
	t.Parallel()

	r, _ := authRouter(&fakeParser{err: errors.New("bad signature")})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CredentialHeader, "broken-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// a present-but-invalid credential never downgrades to anonymous
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthOptional_ValidCredentialAttachesIdentity(t *testing.T) {
	t.Parallel()

	r, seen := authRouter(&fakeParser{userID: "u42", role: "user"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CredentialHeader, "good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen.ID != "u42" || seen.Role != domain.RoleUser {
		t.Fatalf("identity mismatch: %+v", seen)
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	newRouter := func(parser credentialParser) *gin.Engine {
		r := gin.New()
		r.GET("/admin", AuthOptional(parser), RequireRole(domain.RoleAdmin), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(CredentialHeader, "token")

	w := httptest.NewRecorder()
	newRouter(&fakeParser{userID: "u1", role: "user"}).ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("user role: expected 403, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	newRouter(&fakeParser{userID: "a1", role: "admin"}).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("admin role: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	newRouter(&fakeParser{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("anonymous: expected 403, got %d", w.Code)
	}
}
