package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"itops-backend/internal/platform/apierr"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserNameKey = "user_name"
	CtxRoleKey     = "role"
)

// RequireAuth validates "Authorization: Bearer <token>" and puts sub/name/role into the context.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			apierr.Abort(c, apierr.Unauthenticated("missing bearer token"))
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			apierr.Abort(c, apierr.Unauthenticated("invalid token"))
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			apierr.Abort(c, apierr.Unauthenticated("invalid token"))
			return
		}
		name, _ := claims["name"].(string)
		role, _ := claims["role"].(string)

		c.Set(CtxUserIDKey, sub)
		c.Set(CtxUserNameKey, name)
		c.Set(CtxRoleKey, role)
		c.Next()
	}
}

// RequireRole allows only the listed roles. Use after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if r != "" {
			roleSet[r] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		if _, ok := roleSet[c.GetString(CtxRoleKey)]; !ok {
			apierr.Abort(c, apierr.Forbidden("forbidden"))
			return
		}
		c.Next()
	}
}

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Name string
	Role string
}

func ActorFrom(c *gin.Context) Actor {
	a := Actor{
		ID:   c.GetString(CtxUserIDKey),
		Name: c.GetString(CtxUserNameKey),
		Role: c.GetString(CtxRoleKey),
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	return a
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
