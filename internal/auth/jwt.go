package auth

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried by issued tokens
const (
	RoleWidget = "widget"
	RoleAdmin  = "admin"
)

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	SessionID string `json:"session_id,omitempty"`
	Role      string `json:"role"` // "widget" or "admin"
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("voxlead-dev-secret")
}

// GenerateWidgetToken generates a JWT token bound to one chat session.
// The widget presents it when opening the voice bridge.
func GenerateWidgetToken(sessionID string) (string, error) {
	claims := &JWTClaims{
		SessionID: sessionID,
		Role:      RoleWidget,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// GenerateAdminToken generates a JWT token for lead-list access
func GenerateAdminToken(subject string) (string, error) {
	claims := &JWTClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
