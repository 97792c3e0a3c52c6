// package utils provides utility functions to support various operations within the application.
package utils

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/schemas"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ParsePaginationParams extracts the 'offset' and 'limit' parameters from the request's query parameters.
// It provides default values and ensures that the returned values are non-negative and bounded.
func ParsePaginationParams(c *gin.Context) (int, int) {
	offset, err := strconv.Atoi(c.DefaultQuery(OffsetParamKey, "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	limit, err := strconv.Atoi(c.DefaultQuery(LimitParamKey, strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return offset, limit
}

// SendPaginatedResponse sends one page of records together with the pagination details.
func SendPaginatedResponse(c *gin.Context, records interface{}, offset, limit, totalRecords int) {
	paginatedResponse := schemas.PaginatedResponse{
		Records: records,
		Pagination: schemas.Pagination{
			Offset:  offset,
			Limit:   limit,
			Records: totalRecords,
		},
	}

	WriteAndLogResponse(c, paginatedResponse, http.StatusOK)
}
