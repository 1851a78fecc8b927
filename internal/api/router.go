package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"carpark-backend/config"
	"carpark-backend/internal/model"
	"carpark-backend/internal/mw"
)

// NewRouter creates and configures the Gin router: three authenticated staff
// surfaces sharing the same record routes, the anonymous visitor surface,
// and the push subscription endpoints.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	auth := mw.Auth(cfg.Auth.JWTSecret)
	api := r.Group("/api")

	// Anonymous visitor surface: rate limited per client IP, with the
	// availability listing served through the response cache.
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)

	visitor := api.Group("/visitor")
	visitor.Use(mw.RateLimit(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, cfg.Server.RequestIPHeader))
	{
		visitor.GET("/carparks", mw.Cache(cacheStore, cacheTTL), h.ListCarParks)
		visitor.POST("/bookings", h.VisitorCreate)
	}

	// Staff surfaces: one route set per role, all backed by the same
	// category-parameterized handlers.
	for _, role := range []string{model.RoleAdmin, model.RoleManager, model.RolePatrol} {
		g := api.Group("/" + role)
		g.Use(auth, mw.RequireRole(role))
		{
			g.POST("/:category", h.CreateRecord)
			g.GET("/:category", h.ListRecords)
			g.GET("/:category/export", h.ExportRecords)
			g.GET("/:category/:id", h.GetRecord)
			g.PATCH("/:category/checkout/:id", h.CheckoutRecord)
			g.DELETE("/:category/:id", h.DeleteRecord)
		}
	}

	// Push subscription management for staff dashboards.
	staff := api.Group("/staff")
	staff.Use(auth)
	{
		staff.GET("/subscriptions", h.GetSubscription)
		staff.PUT("/subscriptions", h.PutSubscription)
		staff.DELETE("/subscriptions", h.DeleteSubscription)
		staff.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
