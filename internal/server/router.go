// Package server assembles the HTTP API from the feature packages.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/auth"
	"cert-chain/credential-portal/credential-portal-backend/internal/certificates"
	"cert-chain/credential-portal/credential-portal-backend/internal/logging"
	"cert-chain/credential-portal/credential-portal-backend/internal/requests"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
	"cert-chain/credential-portal/credential-portal-backend/pkg/chain"
)

// Deps are the collaborators the router wires together. Publisher, Certificates
// and Payments are optional.
type Deps struct {
	Users        users.Repository
	Requests     requests.Repository
	Tokens       *auth.TokenManager
	BcryptCost   int
	Publisher    requests.Publisher
	Certificates certificates.Service
	Payments     chain.PaymentVerifier
	CORSOrigin   string
	Logger       *zap.Logger
}

// NewRouter returns the gin engine serving /api and /health.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(logger), corsMiddleware(d.CORSOrigin))

	userService := users.NewService(d.Users, logger)
	authService := auth.NewService(d.Users, d.Tokens, d.BcryptCost, logger)
	requestService := requests.NewService(d.Requests, userService, d.Users, d.Publisher, d.Payments, logger)

	requireAuth := auth.Middleware(d.Tokens, d.Users)

	api := router.Group("/api")
	{
		auth.RegisterRoutes(api, auth.NewHandler(authService, logger), requireAuth)

		userGroup := api.Group("/users")
		users.NewHandler(userService, logger).RegisterRoutes(userGroup)
		requests.NewHandler(requestService, logger).RegisterRoutes(userGroup, requireAuth)

		if d.Certificates != nil {
			certificates.NewHandler(d.Certificates, logger).RegisterRoutes(api)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	return router
}

func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
