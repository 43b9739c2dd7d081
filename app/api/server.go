package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.GetHealth)
	r.GET("/feeds/:id", handler.GetTopicFeed)

	v1 := r.Group("/api/v1")
	{
		topics := v1.Group("/topics")
		topics.GET("", handler.ListTopics)
		topics.POST("", handler.CreateTopic)
		topics.GET("/:id", handler.GetTopic)
		topics.PUT("/:id", handler.UpdateTopic)
		topics.PATCH("/:id", handler.UpdateTopic)
		topics.DELETE("/:id", handler.DeleteTopic)

		v1.GET("/posts", handler.ListPosts)
		v1.GET("/logs", handler.ListPushLogs)
		v1.GET("/system/stats", handler.GetSystemStats)
		v1.POST("/tasks/fetch", handler.TriggerFetch)
	}

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
