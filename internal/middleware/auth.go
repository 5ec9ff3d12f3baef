package middleware

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/foxxcyber/docfields/internal/config"
)

// signingSalt for PBKDF2 - changing it invalidates every issued token
var signingSalt = []byte("docfields-api-tokens-v1")

// Scopes a client token can carry
const (
	ScopeUpload  = "upload"
	ScopeExtract = "extract"
	ScopeHistory = "history"
)

// AllScopes is granted when a token is minted without explicit scopes
var AllScopes = []string{ScopeUpload, ScopeExtract, ScopeHistory}

// ClientClaims represents the claims in an API client token
type ClientClaims struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// DeriveSigningKey derives the 32-byte HMAC key from the configured secret
func DeriveSigningKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), signingSalt, 100000, 32, sha256.New)
}

// IssueToken mints a signed token for clientID valid for ttl.
// A non-positive ttl falls back to the configured expiry and empty scopes
// grant AllScopes.
func IssueToken(cfg *config.Config, clientID string, scopes []string, ttl time.Duration) (string, error) {
	if !cfg.AuthEnabled() {
		return "", errors.New("JWT_SECRET is not set")
	}
	if strings.TrimSpace(clientID) == "" {
		return "", errors.New("client id is required")
	}
	if len(scopes) == 0 {
		scopes = AllScopes
	}
	for _, scope := range scopes {
		if !knownScope(scope) {
			return "", fmt.Errorf("unknown scope %q", scope)
		}
	}
	if ttl <= 0 {
		ttl = cfg.JWTExpiry
	}

	now := time.Now()
	claims := ClientClaims{
		ClientID: clientID,
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   clientID,
			Issuer:    "docfields",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(DeriveSigningKey(cfg.JWTSecret))
}

// AuthRequired middleware checks for a valid bearer token
func AuthRequired(cfg *config.Config) fiber.Handler {
	key := DeriveSigningKey(cfg.JWTSecret)

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "missing authorization header")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "invalid authorization format")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.ParseWithClaims(tokenString, &ClientClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid signing method")
			}
			return key, nil
		})
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}

		claims, ok := token.Claims.(*ClientClaims)
		if !ok || !token.Valid || claims.ClientID == "" {
			return unauthorized(c, "invalid token claims")
		}

		c.Locals("client_id", claims.ClientID)
		c.Locals("client_scopes", claims.Scopes)

		return c.Next()
	}
}

// RequireScope rejects requests whose token does not carry scope.
// It must run after AuthRequired.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetClientID(c) == "" {
			return unauthorized(c, "unauthorized")
		}
		if !slices.Contains(GetClientScopes(c), scope) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "token lacks the " + scope + " scope",
			})
		}
		return c.Next()
	}
}

// GetClientScopes extracts the authenticated client's scopes from the context
func GetClientScopes(c *fiber.Ctx) []string {
	if scopes, ok := c.Locals("client_scopes").([]string); ok {
		return scopes
	}
	return nil
}

func knownScope(scope string) bool {
	return slices.Contains(AllScopes, scope)
}

// GetClientID extracts the authenticated client ID from the context
func GetClientID(c *fiber.Ctx) string {
	if id, ok := c.Locals("client_id").(string); ok {
		return id
	}
	return ""
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
