package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/logger"
)

// HeaderTotalCount carries the number of matches before range slicing.
const HeaderTotalCount = "X-Pagination-Total-Count"

type response struct {
	Success bool     `json:"success"`
	Data    any      `json:"data"`
	Errors  []string `json:"errors"`
}

func writeResponse(c *gin.Context, data interface{}, statusCode int, errors []string) {

	if statusCode == http.StatusNoContent {
		c.JSON(statusCode, nil)
		return

	}

	response := response{
		Success: statusCode < http.StatusBadRequest,
		Data:    data,
		Errors:  errors,
	}

	c.JSON(statusCode, response)
}

// writeError maps err onto its HTTP status. Server side failures are logged as errors.
func writeError(c *gin.Context, logger logger.Logger, message string, err error) {
	statusCode := apperrors.HTTPStatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		logger.Error(message, "err", err.Error())
	} else {
		logger.Warn(message, "err", err.Error())
	}

	c.Abort()
	writeResponse(c, nil, statusCode, []string{err.Error()})
}
