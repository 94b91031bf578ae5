package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// handleKey is the gin context key under which the authenticated handle
// is stored.
const handleKey = "auth_handle"

// Claims carries the account handle alongside the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	Handle string `json:"handle"`
}

// GenerateToken mints a signed bearer token for the given handle.
func GenerateToken(handle string, secretKey []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Handle: handle,
	})
	return token.SignedString(secretKey)
}

// HandleFromToken parses and verifies a token and returns its handle.
func HandleFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Handle == "" {
		return "", ErrInvalidToken
	}

	return claims.Handle, nil
}

// Middleware validates the Authorization bearer token and binds the
// authenticated handle to the request. Routes carrying a :handle path
// parameter additionally require it to match the token's handle, so one
// account's session can never reach another account's routes.
func Middleware(secretKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			return
		}

		handle, err := HandleFromToken(tokenString, secretKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		if p := c.Param("handle"); p != "" && p != handle {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "token does not match account",
			})
			return
		}

		c.Set(handleKey, handle)
		c.Next()
	}
}

// HandleFrom returns the authenticated handle bound by Middleware.
func HandleFrom(c *gin.Context) string {
	return c.GetString(handleKey)
}
