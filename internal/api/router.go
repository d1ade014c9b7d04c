package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"rentaudit/internal/api/handlers"
	"rentaudit/internal/api/middleware"
	"rentaudit/internal/captcha"
	"rentaudit/internal/config"
	"rentaudit/internal/email"
	"rentaudit/internal/models"
	"rentaudit/internal/services"
	"rentaudit/internal/storage"
)

// Dependencies are the services the HTTP API is built on. Storage may be nil,
// in which case image uploads are not offered.
type Dependencies struct {
	Listings services.IListingService
	Audit    services.IAuditService
	Admins   services.IAdminService
	Storage  storage.IS3Storage
	Captcha  captcha.ITurnstileVerifier
}

// SetupRouter configures and returns the main Gin engine. ctx bounds the
// lifetime of background housekeeping such as the rate limiter cleanup.
func SetupRouter(ctx context.Context, cfg *config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger(), gin.CustomRecovery(handlers.Recovery))
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigin))
	r.NoMethod(handlers.MethodNotAllowed)
	r.NoRoute(handlers.NotFound)

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg)
	public := []gin.HandlerFunc{middleware.CaptchaMiddleware(cfg, deps.Captcha), rateLimiter.Limit()}
	authRequired := []gin.HandlerFunc{middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware()}

	listingHandler := handlers.NewListingHandler(deps.Listings)
	auditHandler := handlers.NewAuditHandler(deps.Audit)
	authHandler := handlers.NewAuthHandler(deps.Admins)

	listings := r.Group("/listings")
	{
		listings.POST("", chain(public, listingHandler.Submit)...)
		listings.GET("/public", chain(public, listingHandler.ListPublic)...)
		if deps.Storage != nil {
			imageHandler := handlers.NewImageHandler(deps.Storage)
			listings.POST("/images/presign", chain(public, imageHandler.Presign)...)
		}

		listings.GET("", chain(authRequired, listingHandler.ListAdmin)...)
		listings.GET("/:id", chain(authRequired, listingHandler.Get)...)
		listings.PUT("/:id", chain(authRequired, listingHandler.Update)...)
	}

	r.GET("/audit-logs", chain(authRequired, auditHandler.List)...)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", chain(public, authHandler.Login)...)
		authGroup.GET("/verify", chain(authRequired, authHandler.Verify)...)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	return r
}

// chain returns a fresh handler slice of prefix followed by h, never sharing
// prefix's backing array.
func chain(prefix []gin.HandlerFunc, h ...gin.HandlerFunc) []gin.HandlerFunc {
	return slices.Concat(prefix, h)
}

// SetupServiceRouter configures the internal service API used by deployment
// tooling and end-to-end tests. It must not be exposed publicly.
func SetupServiceRouter(rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.Response{Error: "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, models.Response{Success: true, Message: "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled.")
			}
		case "getTestEmail":
			getTestEmail(c, rdb, req.Arguments)
		default:
			c.JSON(http.StatusNotFound, models.Response{Error: fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail expects arguments [kind, email] and polls Redis briefly for
// the captured message, deleting it once read.
func getTestEmail(c *gin.Context, rdb *redis.Client, rawArgs json.RawMessage) {
	var args []string
	if err := json.Unmarshal(rawArgs, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, models.Response{Error: "Invalid arguments: expected JSON array [kind, email]"})
		return
	}
	key := email.MockEmailKey(args[1], args[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var stored string
	var err error
	for i := 0; i < 10; i++ {
		stored, err = rdb.GetDel(ctx, key).Result()
		if err == nil {
			break
		}
		if err != redis.Nil {
			log.Printf("Service API: error reading %s from Redis: %v", key, err)
			c.JSON(http.StatusInternalServerError, models.Response{Error: "Redis error"})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		c.JSON(http.StatusNotFound, models.Response{Error: fmt.Sprintf("Test email not found in Redis for key %s", key)})
		return
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(stored), &data); err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{Error: "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, models.Response{Success: true, Data: data})
}
