package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	sec "NewsWire/tools/security"
)

// Context keys downstream handlers read.
const (
	CtxUserIDKey = "authUserId"
	CtxTokenKey  = "authorization"
)

type Options struct {
	Secret []byte
	// HeaderToken is the header carrying the raw token, default "authorization".
	HeaderToken string
	// EnableAuthorizationBearer also accepts "Authorization: Bearer xxx".
	EnableAuthorizationBearer bool
}

func DefaultOptions(secret []byte) *Options {
	return &Options{
		Secret:                    secret,
		HeaderToken:               "authorization",
		EnableAuthorizationBearer: true,
	}
}

// Middleware rejects requests without a valid signed token and stores the
// verified identity in the gin context.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))

		if token == "" && opts.EnableAuthorizationBearer {
			if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
				if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					token = strings.TrimSpace(authz[len("bearer "):])
				}
			}
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := sec.Verify(sec.DefaultOptions(opts.Secret), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxTokenKey, token)
		c.Set(CtxUserIDKey, claims.UserID())
		c.Next()
	}
}
