// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront-backend/internal/config"
)

// CORS returns a middleware that handles Cross-Origin Resource Sharing
func CORS(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     cfg.Security.CORSAllowedMethods,
		AllowHeaders:     cfg.Security.CORSAllowedHeaders,
		ExposeHeaders:    []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}

	var exact, suffixes []string
	for _, origin := range cfg.Security.CORSAllowedOrigins {
		switch {
		case origin == "*":
			corsCfg.AllowOriginFunc = func(string) bool { return true }
			return cors.New(corsCfg)
		case strings.HasPrefix(origin, "*."):
			// Handle wildcard subdomains (e.g., *.example.com)
			suffixes = append(suffixes, strings.TrimPrefix(origin, "*"))
		default:
			exact = append(exact, origin)
		}
	}

	corsCfg.AllowOriginFunc = func(origin string) bool {
		for _, allowed := range exact {
			if origin == allowed {
				return true
			}
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(origin, suffix) {
				return true
			}
		}
		return false
	}
	return cors.New(corsCfg)
}
