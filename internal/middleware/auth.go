package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"treasury/internal/config"
	apperrors "treasury/internal/errors"
	"treasury/internal/models"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey     = "userID"
	RoleKey       = "role"
	BoutiqueIDKey = "boutiqueID"
)

const tokenIssuer = "treasury-api"

// getJWTKey returns the JWT key from configuration
func getJWTKey() []byte {
	return []byte(config.Get().JWTSecret)
}

// JWTClaims represents the claims in the JWT. Tokens are issued by the
// back office identity service; this API only verifies them.
type JWTClaims struct {
	UserID     string      `json:"user_id"`
	Role       models.Role `json:"role"`
	BoutiqueID string      `json:"boutique_id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an access token for a user acting in a boutique.
func GenerateAccessToken(userID string, role models.Role, boutiqueID string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID:     userID,
		Role:       role,
		BoutiqueID: boutiqueID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(config.Get().JWTExpirationDur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTKey())
}

// ParseAccessToken verifies the signature and expiry of a token and checks
// that it names a user, a known role and a boutique.
func ParseAccessToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getJWTKey(), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	switch claims.Role {
	case models.RoleAdmin, models.RoleManager, models.RoleStaff:
	default:
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	if claims.UserID == "" || claims.BoutiqueID == "" {
		return nil, fmt.Errorf("token is missing user or boutique")
	}
	return claims, nil
}

// AuthMiddleware verifies the bearer token and stores the caller's user id,
// role and boutique in the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Authorization header is required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid authorization header format"))
			return
		}

		claims, err := ParseAccessToken(parts[1])
		if err != nil {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Set(BoutiqueIDKey, claims.BoutiqueID)
		c.Next()
	}
}

// ActorFrom returns the actor stored by AuthMiddleware.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	userID := c.GetString(UserIDKey)
	boutiqueID := c.GetString(BoutiqueIDKey)
	role, _ := c.Get(RoleKey)
	r, ok := role.(models.Role)
	if userID == "" || boutiqueID == "" || !ok {
		return models.Actor{}, false
	}
	return models.Actor{Principal: models.Human(userID), Role: r, BoutiqueID: boutiqueID}, true
}
