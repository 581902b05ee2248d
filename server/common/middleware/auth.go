package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"toolhub/server/common/transport/httpresp"
	"toolhub/server/toolhub/domain"
)

// CredentialHeader carries the optional bearer credential.
const CredentialHeader = "x-auth-credential"

const (
	ctxCallerID   = "caller_id"
	ctxCallerRole = "caller_role"
)

type credentialParser interface {
	ParseCredential(token string) (userID, role string, err error)
}

// AuthOptional resolves the caller identity for every request. A missing
// credential means anonymous and never blocks; a credential that is present
// but fails verification is rejected outright rather than downgraded to
// anonymous.
func AuthOptional(parser credentialParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(CredentialHeader))
		if token == "" {
			c.Set(ctxCallerID, "")
			c.Set(ctxCallerRole, string(domain.RoleAnonymous))
			c.Next()
			return
		}
		userID, role, err := parser.ParseCredential(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidCredential))
			return
		}
		c.Set(ctxCallerID, userID)
		c.Set(ctxCallerRole, role)
		c.Next()
	}
}

func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := map[domain.Role]struct{}{}
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[Identity(c).Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrForbidden))
			return
		}
		c.Next()
	}
}

// Identity returns the caller resolved by AuthOptional; requests that did
// not pass through it count as anonymous.
func Identity(c *gin.Context) domain.CallerIdentity {
	role, ok := c.Get(ctxCallerRole)
	if !ok {
		return domain.Anonymous()
	}
	roleStr, ok := role.(string)
	if !ok {
		return domain.Anonymous()
	}
	id, _ := c.Get(ctxCallerID)
	idStr, _ := id.(string)
	switch domain.Role(roleStr) {
	case domain.RoleUser, domain.RoleAdmin:
		return domain.CallerIdentity{ID: idStr, Role: domain.Role(roleStr)}
	default:
		return domain.Anonymous()
	}
}
