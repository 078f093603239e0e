package main

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/config"
)

const externalPrefix = "/api/external"

// newRouter builds the engine with its middleware stack and returns the two
// route groups the services mount on.
func newRouter(cfg *config.Config) (r *gin.Engine, external, api *gin.RouterGroup) {
	r = gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)
	r.MaxMultipartMemory = cfg.MaxUploadBytes()
	r.Use(appCORS(cfg.CORS.AllowOrigins))

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			apierr.Respond(c, apierr.NotFound("route not found"))
			return
		}
		c.Status(http.StatusNotFound)
	})

	external = r.Group(externalPrefix)
	api = r.Group("/api/v1", limitBody(cfg.MaxUploadBytes()))
	return r, external, api
}

// appCORS applies the credentialed policy for the admin app. The external
// feed is open to any origin and sets its own headers. Installed on the
// engine since group middleware never sees unmatched preflights.
func appCORS(origins []string) gin.HandlerFunc {
	h := cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: true,
	})
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, externalPrefix+"/") {
			return
		}
		h(c)
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
