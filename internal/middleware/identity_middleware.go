package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Context keys for caller identity
const (
	UserIDKey    = "user_id"
	SessionIDKey = "session_id"

	sessionHeader = "X-Session-ID"
	sessionCookie = "cart_session"
)

// IdentityMiddleware resolves the caller to exactly one of a user id or an
// anonymous session id. The core treats both as opaque strings.
type IdentityMiddleware struct {
	jwtSecret string
}

func NewIdentityMiddleware(jwtSecret string) *IdentityMiddleware {
	return &IdentityMiddleware{jwtSecret: jwtSecret}
}

type identityClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Resolve extracts the user id from a bearer token when one is present and
// valid; otherwise the request runs under an anonymous session id taken
// from the header or cookie, minting a fresh one when neither exists.
func (m *IdentityMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		if userID := m.userFromBearer(c); userID != "" {
			c.Set(UserIDKey, userID)
			log.Debug("Request resolved to user", map[string]interface{}{
				"user_id": userID,
			})
			c.Next()
			return
		}

		sessionID := c.GetHeader(sessionHeader)
		if sessionID == "" {
			if cookie, err := c.Cookie(sessionCookie); err == nil {
				sessionID = cookie
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			c.SetCookie(sessionCookie, sessionID, 0, "/", "", false, true)
			log.Debug("Minted anonymous session", map[string]interface{}{
				"session_id": sessionID,
			})
		}

		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}

func (m *IdentityMiddleware) userFromBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	if claims.UserID != "" {
		return claims.UserID
	}
	return claims.Subject
}

// GetUserID returns the resolved user id, if any.
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(UserIDKey)
	return userID, userID != ""
}

// GetSessionID returns the resolved session id, if any.
func GetSessionID(c *gin.Context) (string, bool) {
	sessionID := c.GetString(SessionIDKey)
	return sessionID, sessionID != ""
}
