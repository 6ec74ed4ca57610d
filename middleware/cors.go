package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
}

// DefaultCORSConfig returns default CORS configuration
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type", "Content-Length", "Accept-Encoding",
			"Authorization", "Accept", "Origin", "Cache-Control", TraceIDHeader,
		},
		ExposeHeaders:    []string{TraceIDHeader},
		AllowCredentials: true,
	}
}

// CORS creates a CORS middleware with default configuration
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig creates a CORS middleware with custom configuration
func CORSWithConfig(config CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := "*"
		if len(config.AllowOrigins) > 0 && config.AllowOrigins[0] != "*" {
			reqOrigin := c.Request.Header.Get("Origin")
			for _, o := range config.AllowOrigins {
				if o == reqOrigin {
					origin = reqOrigin
					break
				}
			}
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		if config.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if len(config.AllowHeaders) > 0 {
			h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", "))
		}
		if len(config.AllowMethods) > 0 {
			h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", "))
		}
		if len(config.ExposeHeaders) > 0 {
			h.Set("Access-Control-Expose-Headers", strings.Join(config.ExposeHeaders, ", "))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
