package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"science-quiz/internal/app"
)

// NewRouter wires the websocket, REST and operational endpoints.
// metricsHandler may be nil.
func NewRouter(service *app.QuizService, metricsHandler http.Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	wsHandler := NewWSHandler(service, logger)
	restHandler := NewRESTHandler(service)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}
	r.GET("/ws", func(c *gin.Context) { wsHandler.ServeWS(c.Writer, c.Request) })

	api := r.Group("/api/v1")
	{
		history := api.Group("/history")
		{
			history.GET("", restHandler.ListHistory)
			history.GET("/students", restHandler.ListStudents)
			history.POST("/:id/answers/:index/explain", restHandler.ExplainAnswer)
		}
		api.GET("/sessions/:id", restHandler.GetSession)
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
