package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/metrics"
	"github.com/meghashyamc/linkindex/services/search"
	"github.com/meghashyamc/linkindex/validation"
)

type SearchRequest struct {
	Query        string `form:"query" validate:"valid_query,max=1000"`
	Range        string `form:"range" validate:"valid_range"`
	Algorithm    string `form:"algo" validate:"valid_algorithm"`
	Tags         string `form:"tag" validate:"valid_tags"`
	TagExclusive string `form:"tag_exclusive"`
}

// tagExclusive accepts "true" or "1" in any case. Anything else means false.
func (r *SearchRequest) tagExclusive() bool {
	value := strings.ToLower(strings.TrimSpace(r.TagExclusive))
	return value == "true" || value == "1"
}

func SetupSearch(router *gin.Engine, logger logger.Logger, service *search.Service, validator *validation.Validator, metrics *metrics.Metrics) {
	router.GET("/search", handleSearch(service, logger, validator, metrics))

}

func handleSearch(service *search.Service, logger logger.Logger, validator *validation.Validator, metrics *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request query parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			metrics.SearchQueriesTotal.WithLabelValues("invalid", "error").Inc()
			writeError(c, logger, "could not validate search request", err)
			return
		}

		result, err := service.Search(c.Request.Context(), search.Query{
			Text:         strings.TrimSpace(request.Query),
			Algorithm:    request.Algorithm,
			Range:        request.Range,
			Tags:         request.Tags,
			TagExclusive: request.tagExclusive(),
		})
		if err != nil {
			metrics.SearchQueriesTotal.WithLabelValues("invalid", "error").Inc()
			writeError(c, logger, "search failed", err)
			return
		}

		resultType := "hit"
		if result.Total == 0 {
			resultType = "zero_result"
		}
		metrics.SearchQueriesTotal.WithLabelValues(result.AlgorithmKind.String(), resultType).Inc()
		metrics.SearchLatency.WithLabelValues(result.AlgorithmKind.String()).Observe(time.Since(start).Seconds())
		metrics.SearchResultsCount.Observe(float64(result.Total))

		c.Header(HeaderTotalCount, strconv.Itoa(result.Total))
		writeResponse(c, result, http.StatusOK, nil)
	}
}
