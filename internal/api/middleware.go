package api

import (
	"net/http"
	"strings"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	tokenCookie = "token"
	claimsKey   = "claims"
)

// authenticate accepts the session cookie or a Bearer token
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(tokenCookie)
		if header := c.GetHeader("Authorization"); token == "" && strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		if token == "" {
			fail(c, http.StatusUnauthorized, "Unauthorised user!")
			return
		}

		claims, err := h.auth.Verify(c.Request.Context(), token)
		if err != nil {
			fail(c, http.StatusUnauthorized, "Unauthorised user!")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil || claims.Role != models.RoleAdmin {
			fail(c, http.StatusForbidden, "Access denied")
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *service.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*service.Claims)
	return claims
}
