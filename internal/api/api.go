// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/api/handlers"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Relay handlers.Relayer
	// FunctionName is the route segment the Functions host calls,
	// /api/<FunctionName>.
	FunctionName string
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
	switch {
	case allowAll:
		corsConfig.AllowAllOrigins = true
	case len(normalizedOrigins) > 0:
		corsConfig.AllowOrigins = normalizedOrigins
		corsConfig.AllowCredentials = true
	}
	if corsConfig.AllowAllOrigins || len(corsConfig.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services != nil && services.Relay != nil {
		name := strings.Trim(services.FunctionName, "/")
		if name == "" {
			name = "relay"
		}
		relayHandler := handlers.NewRelayHandler(services.Relay)
		fnGroup := router.Group("/api/" + name)
		{
			fnGroup.POST("", relayHandler.Relay)
			fnGroup.GET("/last", relayHandler.Last)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
