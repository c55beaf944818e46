// Package routes mounts the HTTP API on a gin engine.
package routes

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventhub/middlewares"
	"eventhub/models"
	"eventhub/services"
	"eventhub/utils"
)

// Deps is everything the handlers need. Invalidator may be nil.
type Deps struct {
	Coordinator *services.Coordinator
	Query       *services.QueryService
	Users       models.UserRepository
	Tokens      *utils.TokenManager
	Redis       *redis.Client
	Invalidator *utils.CacheInvalidator

	CacheTTL   time.Duration
	DailyQuota int
	Limits     *RateLimits
	// CORSOrigins lists the browser origins allowed to call the API; empty or
	// "*" allows any origin.
	CORSOrigins []string
}

type RateLimits struct {
	Global middlewares.LimiterConfig // per client IP, every route
	Auth   middlewares.LimiterConfig // per client IP, signup and login
	User   middlewares.LimiterConfig // per caller, authenticated routes
}

func DefaultRateLimits() RateLimits {
	return RateLimits{
		Global: middlewares.LimiterConfig{RPS: 20, Burst: 40, IdleTTL: 3 * time.Minute},
		Auth:   middlewares.LimiterConfig{RPS: 0.5, Burst: 2, IdleTTL: 10 * time.Minute},
		User:   middlewares.LimiterConfig{RPS: 5, Burst: 10, IdleTTL: 10 * time.Minute},
	}
}

type deps struct {
	coord  *services.Coordinator
	query  *services.QueryService
	users  models.UserRepository
	tokens *utils.TokenManager
	inv    *utils.CacheInvalidator
}

// RegisterRoutes mounts the API and returns a func that stops the background
// janitors of the rate limiters.
func RegisterRoutes(server *gin.Engine, d Deps) (stop func()) {
	h := &deps{coord: d.Coordinator, query: d.Query, users: d.Users, tokens: d.Tokens, inv: d.Invalidator}

	limits := DefaultRateLimits()
	if d.Limits != nil {
		limits = *d.Limits
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 30 * time.Second
	}
	if d.DailyQuota <= 0 {
		d.DailyQuota = 2000
	}

	globalLimiter := middlewares.NewRateLimiter(limits.Global)
	authLimiter := middlewares.NewRateLimiter(limits.Auth)
	userLimiter := middlewares.NewRateLimiter(limits.User)
	stop = func() {
		globalLimiter.Close()
		authLimiter.Close()
		userLimiter.Close()
	}

	server.Use(
		middlewares.RequestID(),
		middlewares.RequestLogger(),
		middlewares.Recovery(),
		cors.New(corsConfig(d.CORSOrigins)),
		globalLimiter.Middleware(middlewares.ByClientIP("ip:")),
	)

	server.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Event registration API"})
	})
	server.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := server.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authLimiter.Middleware(middlewares.ByClientIP("signup:")), h.signup)
	authGroup.POST("/login", authLimiter.Middleware(middlewares.ByClientIP("login:")), h.login)

	// public reads: global limiter and response cache only
	cache := middlewares.ResponseCache(d.Redis, d.CacheTTL)
	api.GET("/events", cache, h.getEvents)
	api.GET("/events/:eventId", cache, h.getEvent)

	authed := api.Group("")
	authed.Use(
		middlewares.Authenticate(d.Tokens),
		userLimiter.Middleware(middlewares.ByUserID),
		middlewares.Quota(d.Redis, middlewares.QuotaRule{
			Limit:  d.DailyQuota,
			Window: 24 * time.Hour,
			KeyFn:  middlewares.UserDailyQuotaKey,
		}),
	)
	authed.POST("/events", h.createEvent)
	authed.POST("/events/:eventId/register", h.registerForEvent)
	authed.DELETE("/events/:eventId/cancel/:userId", h.cancelRegistration)
	authed.GET("/users/:userId/events", h.getUserEvents)

	return stop
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowHeaders("Authorization", middlewares.RequestIDHeader)
	cfg.AddExposeHeaders("X-Cache", middlewares.RequestIDHeader)
	return cfg
}
