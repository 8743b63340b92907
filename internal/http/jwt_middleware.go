package http

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"prepwise/internal/service"
)

const identityKey = "identity"

type identityResolver interface {
	ResolveIdentity(ctx context.Context, accessToken string) (service.Identity, error)
}

// JWTAuthMiddleware exige "Authorization: Bearer <token>", valida el token y
// adjunta la identidad al contexto de gin y al context.Context del request.
func JWTAuthMiddleware(resolver identityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			abortWithError(c, service.ErrMissingToken)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abortWithError(c, service.ErrMalformedAuthHeader)
			return
		}

		identity, err := resolver.ResolveIdentity(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(service.ContextWithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// CurrentIdentity obtiene la identidad que dejó JWTAuthMiddleware.
func CurrentIdentity(c *gin.Context) (service.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return service.Identity{}, false
	}
	identity, ok := val.(service.Identity)
	return identity, ok
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
