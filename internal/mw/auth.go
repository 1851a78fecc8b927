package mw

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	authorizationHeader = "Authorization"
	bearerType          = "Bearer"
	principalKey        = "principal"
)

// Principal is the authenticated staff identity extracted from the bearer
// token. Tokens are issued by an external authentication service; this layer
// only validates and unpacks them.
type Principal struct {
	StaffID int64
	Role    string
}

// PrincipalFrom returns the principal the Auth middleware stored on the
// request context.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// Auth validates the bearer token and injects the principal into the request
// context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authorizationHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "Unauthorized", "message": "missing authorization header"}})
			return
		}

		fields := strings.Fields(header)
		if len(fields) != 2 || !strings.EqualFold(fields[0], bearerType) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "Unauthorized", "message": "invalid authorization header format"}})
			return
		}

		principal, err := parseToken(fields[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "Unauthorized", "message": "invalid or expired token"}})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole gates a route group to the listed roles. Must run after Auth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"code": "Forbidden", "message": "no principal on request"}})
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"code": "Forbidden", "message": "role not permitted on this surface"}})
	}
}

func parseToken(tokenString, secret string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Principal{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	staffID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid subject claim %q", sub)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return Principal{}, fmt.Errorf("missing role claim")
	}

	return Principal{StaffID: staffID, Role: role}, nil
}
