package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/linkindex/db/searchdb"
)

func SetupStatus(router *gin.Engine, db searchdb.DB) {
	router.GET("/status", handleStatus(db))
}

func handleStatus(db searchdb.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeResponse(c, db.Stats(), http.StatusOK, nil)
	}
}
