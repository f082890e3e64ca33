package handler

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

func jwtSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("dev-only-insecure-secret")
}

// generateJWT issues a token carrying the anonymous profile ID.
func generateJWT(profileID string) (string, error) {
	claims := jwt.MapClaims{
		"profile_id": profileID,
		"exp":        time.Now().Add(time.Hour * 72).Unix(),
		"iss":        "echospace-service",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// validateAndGetProfileID parses a token and returns the profile ID claim.
func validateAndGetProfileID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	profileID, ok := claims["profile_id"].(string)
	if !ok || profileID == "" {
		return "", errors.New("missing profile_id claim")
	}
	return profileID, nil
}

// authProfileID extracts and validates the caller's token from the
// Authorization header or, for WebSocket upgrades, the "token" query
// parameter.
func authProfileID(c *gin.Context) (string, error) {
	tokenString := c.Query("token")
	if tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", errors.New("authorization token missing")
		}
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}
	return validateAndGetProfileID(tokenString)
}

// GetAnonID mints a fresh anonymous participant ID and returns a JWT for it.
func (h *Handler) GetAnonID(c *gin.Context) {
	anonUUID, _ := uuid.NewRandom()
	profileID := anonUUID.String()

	token, err := generateJWT(profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "profile_id": profileID})
}
