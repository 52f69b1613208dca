package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/logging"
)

const (
	ContextUserID   = "userId"
	ContextUsername = "username"
	ContextRole     = "role"
)

const defaultTokenTTL = 24 * time.Hour

var (
	jwtMu        sync.RWMutex
	jwtSecretVal []byte
	jwtTokenTTL  = defaultTokenTTL
)

// InitJWT sets the signing secret and token lifetime used by every function
// in this file. A zero ttl keeps the default of 24h.
func InitJWT(secret string, ttl time.Duration) error {
	if secret == "" {
		return errors.New("JWT secret must not be empty")
	}
	jwtMu.Lock()
	defer jwtMu.Unlock()
	jwtSecretVal = []byte(secret)
	if ttl > 0 {
		jwtTokenTTL = ttl
	}
	return nil
}

// MustInitJWTSecret is InitJWT that panics on an empty secret.
func MustInitJWTSecret(secret string, ttl time.Duration) {
	if err := InitJWT(secret, ttl); err != nil {
		panic(err)
	}
}

// jwtSecret returns the configured secret, falling back to JWT_SECRET.
func jwtSecret() []byte {
	jwtMu.RLock()
	secret := jwtSecretVal
	jwtMu.RUnlock()
	if secret != nil {
		return secret
	}
	env := os.Getenv("JWT_SECRET")
	if env == "" {
		panic("JWT secret is not configured")
	}
	return []byte(env)
}

func tokenTTL() time.Duration {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return jwtTokenTTL
}

type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256 token for the given identity.
func GenerateToken(userID, username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL())),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return jwtSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errs.ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		tokenString, ok := BearerToken(authHeader)
		if !ok {
			RespondWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)
		c.Request = c.Request.WithContext(logging.ContextWithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return "", false
	}
	s, ok := userID.(string)
	return s, ok && s != ""
}

// GetRole returns the caller's role, or "" when unauthenticated.
func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}
