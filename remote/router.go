package remote

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/sessionhub/log"
)

// NewRouter builds the route table for the remote endpoint
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panicked")
		RespondInternalError(c, "internal error")
	}))
	r.Use(log.GinLogger())
	r.Use(corsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	api := r.Group("/api")
	api.GET("/status", h.GetStatus)
	api.GET("/sessions", h.GetSessions)
	api.GET("/sessions/:id/terminal", h.GetTerminal)
	api.POST("/sessions/:id/reply", h.PostReply)
	api.POST("/sessions/:id/complete", h.PostComplete)

	r.NoRoute(h.NotFound)

	return r
}

// corsMiddleware allows every origin. The endpoint is only reachable over
// the private network.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		setCORSHeaders(c.Writer.Header())

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{})
			return
		}

		c.Next()
	}
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
	h.Set("Access-Control-Max-Age", "86400")
}
