package server

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLog returns middleware that logs one line per request after it
// completes. skipPaths is the set of routes to not log (e.g. health probes).
func RequestLog(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if skip[path] {
			return
		}
		log.Printf("http: %s %s -> %d (%dms)",
			c.Request.Method, path, c.Writer.Status(), time.Since(start).Milliseconds())
	}
}
