package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/studentdiary-backend/internal/platform/ctxutil"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

const (
	headerOwnerID = "X-Owner-Id"
	ownerKey      = "owner_id"
)

type AuthConfig struct {
	// JWTSecret enables HS256 bearer tokens; the owner is the token subject.
	JWTSecret string
	// DevOwner is used when no secret is configured and the request names no owner.
	DevOwner string
}

type AuthMiddleware struct {
	log *logger.Logger
	cfg AuthConfig
}

func NewAuthMiddleware(log *logger.Logger, cfg AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), cfg: cfg}
}

// DevMode reports whether owner identity is taken from headers instead of tokens.
func (am *AuthMiddleware) DevMode() bool {
	return strings.TrimSpace(am.cfg.JWTSecret) == ""
}

func (am *AuthMiddleware) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, err := am.resolveOwner(c)
		if err != nil || ownerID == "" {
			msg := "missing or invalid token"
			if err != nil {
				am.log.Debug("rejecting request", "path", c.FullPath(), "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": msg, "code": "unauthorized"},
			})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithOwnerID(c.Request.Context(), ownerID))
		c.Set(ownerKey, ownerID)
		c.Next()
	}
}

func (am *AuthMiddleware) resolveOwner(c *gin.Context) (string, error) {
	if am.DevMode() {
		if owner := strings.TrimSpace(c.GetHeader(headerOwnerID)); owner != "" {
			return owner, nil
		}
		return strings.TrimSpace(am.cfg.DevOwner), nil
	}
	tokenString := extractBearer(c)
	if tokenString == "" {
		return "", errors.New("missing bearer token")
	}
	return parseSubject(tokenString, []byte(am.cfg.JWTSecret))
}

func parseSubject(tokenString string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
