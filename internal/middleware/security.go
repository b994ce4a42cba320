package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// SecurityConfig represents security headers configuration
type SecurityConfig struct {
	HSTS       bool
	HSTSMaxAge int
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTS:       true,
		HSTSMaxAge: 31536000,
	}
}

// SecurityHeaders adds security headers to responses. Responses carry
// clinical data, so nothing is cacheable by intermediaries.
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.HSTS {
			c.Header("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", config.HSTSMaxAge))
		}
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
