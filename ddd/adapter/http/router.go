package http

import (
	"github.com/gin-gonic/gin"

	"transcode-jobs/ddd/application/app"
	"transcode-jobs/pkg/middleware"
)

// Router wires the HTTP surface.
type Router struct {
	jobApp      app.JobApp
	rateLimiter gin.HandlerFunc
}

// NewRouter creates the router. rateLimiter may be nil when submission rate
// limiting is disabled.
func NewRouter(jobApp app.JobApp, rateLimiter gin.HandlerFunc) *Router {
	return &Router{
		jobApp:      jobApp,
		rateLimiter: rateLimiter,
	}
}

// SetupRoutes registers all endpoints.
func (r *Router) SetupRoutes(engine *gin.Engine) {
	jobController := NewJobController(r.jobApp)

	v1 := engine.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			if r.rateLimiter != nil {
				jobs.POST("", r.rateLimiter, jobController.SubmitJob)
			} else {
				jobs.POST("", jobController.SubmitJob)
			}
			jobs.GET("", jobController.ListJobs)
			jobs.GET("/:job_id", jobController.GetJob)
			jobs.GET("/:job_id/result", jobController.GetResult)
			jobs.DELETE("/:job_id", jobController.CancelJob)
		}

		workers := v1.Group("/workers")
		{
			workers.GET("/stats", jobController.WorkerStats)
		}
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "transcode-jobs",
		})
	})
}

// SetupMiddleware installs the common middleware chain.
func (r *Router) SetupMiddleware(engine *gin.Engine) {
	engine.Use(middleware.RequestContextMiddleware())

	engine.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
}
