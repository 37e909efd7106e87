package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/linkindex/api/handlers"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/metrics"
)

func setupRoutes(router *gin.Engine, s *server) {
	router.GET("/health", health())
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	handlers.SetupIndex(router, s.logger, s.indexService, s.searchdb, s.validator, s.metrics)
	handlers.SetupSearch(router, s.logger, s.searchService, s.validator, s.metrics)
	handlers.SetupStatus(router, s.searchdb)

}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter(logger logger.Logger, metrics *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(gin.Recovery())
	router.Use(_CORSMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware(metrics))

	return router
}
