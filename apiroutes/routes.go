package apiroutes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quresis/go-quresis-server/api"
	"github.com/quresis/go-quresis-server/api/interceptors"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/metrics"
	"github.com/quresis/go-quresis-server/services"
)

// REST API routes
func ConfigRoutes(router *gin.Engine, deps *services.Dependencies, limiter interceptors.RateLimiter) *gin.Engine {
	// init metrics
	if global.Conf.Prometheus.Enabled {

		metrics.InitMetrics()

		authorized := router.Group("/metrics", gin.BasicAuth(gin.Accounts{
			global.Conf.Prometheus.Username: global.Conf.Prometheus.Password,
		}))

		authorized.GET("", gin.WrapH(promhttp.Handler()))
	}

	// SERVICE definitions
	identityService := services.NewIdentityService(deps)
	hookService := services.NewHookService(deps)
	transferGuard := services.NewTransferGuard(deps, identityService)
	eventService := services.NewEventService(deps.DBSelector)

	// API definitions
	healthApi := api.NewHealthCheckAPI()
	identityApi := api.NewIdentityApi(identityService)
	hookApi := api.NewHookApi(hookService, transferGuard)
	eventApi := api.NewEventApi(eventService)

	router.GET("/health", healthApi.HealthCheck)

	// PUBLIC API
	publicApi := router.Group("/api", metrics.MetricsMiddleware())
	{
		publicApi.GET("/v1/identities/:owner", identityApi.GetIdentity)
		publicApi.POST("/v1/identities/:owner/verify", identityApi.VerifySignature)
		publicApi.GET("/v1/hooks", hookApi.ListHooks)
		publicApi.GET("/v1/hooks/:asset/statistics", hookApi.GetStatistics)
		publicApi.GET("/v1/events", eventApi.ListEvents)
	}

	// transfer checks are called by the transfer pipeline, rate limited per client
	checkApi := router.Group("/api", metrics.MetricsMiddleware(), interceptors.RateLimitMiddleware(limiter))
	{
		checkApi.POST("/v1/hooks/:asset/check", hookApi.ExecuteTransferCheck)
		checkApi.POST("/v1/hooks/:asset/verified-check", hookApi.ExecuteVerifiedTransferCheck)
	}

	maxAge := time.Duration(global.Conf.Quresis.JwsMaxAgeSeconds) * time.Second
	rootApi := router.Group("/api", metrics.MetricsMiddleware(), interceptors.JWSMiddleware(maxAge))
	{
		rootApi.POST("/v1/identities", identityApi.RegisterIdentity)
		rootApi.POST("/v1/identities/rotate", identityApi.RotateKey)
		rootApi.PUT("/v1/identities/threshold", identityApi.UpdateThreshold)
		rootApi.POST("/v1/identities/freeze", identityApi.ToggleFreeze)
		rootApi.DELETE("/v1/identities", identityApi.CloseIdentity)
		rootApi.POST("/v1/hooks", hookApi.InitializeHook)
		rootApi.PUT("/v1/hooks/:asset/mode", hookApi.UpdateEnforcementMode)
	}

	return router
}
