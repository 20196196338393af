package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/krizium/kidsreading/internal/offline"
	"github.com/krizium/kidsreading/internal/remote"
)

// parseUintParam parses a named path parameter as an unsigned integer.
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// respondError maps domain errors to HTTP status codes.
// Content missing everywhere is 404; a reachability failure is 503.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, offline.ErrNotFound):
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, remote.ErrUnavailable):
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"error": "remote service unavailable"})
	default:
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
