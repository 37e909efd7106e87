package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/linkindex/db/searchdb"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/metrics"
	"github.com/meghashyamc/linkindex/services/index"
	"github.com/meghashyamc/linkindex/validation"
)

type AddRequest struct {
	URL         string   `json:"url" validate:"required,valid_url"`
	Title       *string  `json:"title"`
	Favicon     *string  `json:"favicon"`
	Tags        []string `json:"tags" validate:"valid_tags"`
	Description *string  `json:"description"`
}

type AddResponse struct {
	ID          uint64        `json:"id"`
	URL         string        `json:"url"`
	Title       *string       `json:"title"`
	Favicon     *string       `json:"favicon"`
	Tags        searchdb.Tags `json:"tags"`
	Description *string       `json:"description"`
	Length      int           `json:"length"`
	Created     bool          `json:"created"`
}

func SetupIndex(router *gin.Engine, logger logger.Logger, service *index.Service, db searchdb.DB, validator *validation.Validator, metrics *metrics.Metrics) {
	router.POST("/add", handleAdd(service, db, logger, validator, metrics))

}

func handleAdd(service *index.Service, db searchdb.DB, logger logger.Logger, validator *validation.Validator, metrics *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := AddRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected fields from add request", "err", err.Error())
			metrics.DocumentsAddedTotal.WithLabelValues("failed").Inc()
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			metrics.DocumentsAddedTotal.WithLabelValues("failed").Inc()
			writeError(c, logger, "could not validate add request", err)
			return
		}

		result, err := service.Add(c.Request.Context(), index.Request{
			URL:         request.URL,
			Title:       request.Title,
			Favicon:     request.Favicon,
			Description: request.Description,
			Tags:        request.Tags,
		})
		if err != nil {
			metrics.DocumentsAddedTotal.WithLabelValues("failed").Inc()
			writeError(c, logger, "could not add document", err)
			return
		}

		outcome := "updated"
		if result.Created {
			outcome = "created"
		}
		metrics.DocumentsAddedTotal.WithLabelValues(outcome).Inc()
		stats := db.Stats()
		metrics.IndexedDocuments.Set(float64(stats.Documents))
		metrics.IndexedTerms.Set(float64(stats.Terms))

		doc := result.Document
		writeResponse(c, AddResponse{
			ID:          doc.ID,
			URL:         doc.URL,
			Title:       doc.Title,
			Favicon:     doc.Favicon,
			Tags:        doc.Tags,
			Description: doc.Description,
			Length:      doc.Length,
			Created:     result.Created,
		}, http.StatusOK, nil)
	}
}
