package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/rond-timeline/pkg/response"
)

// SubjectKey holds the authenticated token subject in the gin context
const SubjectKey = "subject"

// JWTAuth requires an HS256 bearer token signed with secret
func JWTAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "Authorization header required")
			return
		}

		claims := &jwt.RegisteredClaims{}
		parsed, err := parser.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !parsed.Valid {
			response.Unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}
