package ginserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const principalContextKey = "staybook.principal"

type principal struct {
	ID    string
	Roles []string
}

func (p principal) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if strings.ToLower(r) == role {
			return true
		}
	}
	return false
}

// TokenResolver maps a bearer token to an authenticated caller. The
// reservation core does not own identity; whatever issued the token does.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (id string, roles []string, err error)
}

type AuthMiddleware struct {
	Resolver TokenResolver
}

// Handle resolves the bearer token when one is present. Anonymous requests
// pass through; individual handlers decide what requires a principal.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Resolver == nil {
		c.Next()
		return
	}
	id, roles, err := m.Resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		c.Next()
		return
	}
	setPrincipal(c, principal{ID: id, Roles: roles})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireRole(c *gin.Context, role string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// StaticTokenResolver is the dev-mode resolver: a fixed token table seeded
// from configuration.
type StaticTokenResolver struct {
	Tokens map[string]StaticPrincipal
}

type StaticPrincipal struct {
	ID    string
	Roles []string
}

var errUnknownToken = errors.New("ginserver: unknown token")

func (r StaticTokenResolver) Resolve(_ context.Context, token string) (string, []string, error) {
	if p, ok := r.Tokens[token]; ok {
		return p.ID, p.Roles, nil
	}
	return "", nil, errUnknownToken
}
