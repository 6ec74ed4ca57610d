package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Context keys for caller identity
const (
	WalletKey   = "wallet_address"
	UsernameKey = "username"
	ClaimsKey   = "claims"
)

// Claims represents the JWT claims structure. The wallet address doubles as
// the caller's ledger account.
type Claims struct {
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT middleware configuration
type JWTConfig struct {
	Secret      string
	TokenPrefix string // "Bearer"
	SkipPaths   []string
}

// DefaultJWTConfig returns default JWT configuration
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:      secret,
		TokenPrefix: "Bearer",
		SkipPaths:   []string{"/health", "/api/health"},
	}
}

// JWTMiddleware creates a JWT authentication middleware
func JWTMiddleware(secret string, logger zerolog.Logger) gin.HandlerFunc {
	return JWTMiddlewareWithConfig(DefaultJWTConfig(secret), logger)
}

// JWTMiddlewareWithConfig creates a JWT middleware with custom configuration
func JWTMiddlewareWithConfig(config JWTConfig, logger zerolog.Logger) gin.HandlerFunc {
	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	unauthorized := func(c *gin.Context, message string) {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{
			StatusCode: http.StatusUnauthorized,
			IsSuccess:  false,
			Error: types.ErrorDetail{
				Timestamp:    time.Now().Format(time.RFC3339),
				Path:         c.Request.URL.Path,
				ErrorMessage: message,
			},
		})
		c.Abort()
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn().Msg("Missing Authorization header")
			unauthorized(c, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != config.TokenPrefix {
			logger.Warn().Str("auth_header", authHeader).Msg("Invalid Authorization header format")
			unauthorized(c, "Invalid Authorization header format. Expected: Bearer <token>")
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(config.Secret), nil
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to parse JWT token")
			unauthorized(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			logger.Warn().Msg("Invalid token claims")
			unauthorized(c, "Invalid token claims")
			return
		}
		if claims.WalletAddress == "" {
			logger.Warn().Msg("Token carries no wallet address")
			unauthorized(c, "Token carries no wallet address")
			return
		}

		c.Set(WalletKey, claims.WalletAddress)
		c.Set(UsernameKey, claims.Username)
		c.Set(ClaimsKey, claims)

		logger.Debug().
			Str("wallet", claims.WalletAddress).
			Msg("JWT authentication successful")

		c.Next()
	}
}

// GetWalletAddress extracts the caller's wallet address from context
func GetWalletAddress(c *gin.Context) (string, bool) {
	wallet, exists := c.Get(WalletKey)
	if !exists {
		return "", false
	}
	walletStr, ok := wallet.(string)
	return walletStr, ok && walletStr != ""
}

// GetClaims extracts full claims from context
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claimsObj, ok := claims.(*Claims)
	return claimsObj, ok
}

// GenerateToken generates a new JWT token for a wallet address
func GenerateToken(secret, walletAddress, username string, expiration time.Duration) (string, error) {
	claims := &Claims{
		WalletAddress: walletAddress,
		Username:      username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
