package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/apperr"
)

// respondErr maps the service error taxonomy onto HTTP. Anything outside
// the taxonomy is a bug and surfaces as a bare 500.
func respondErr(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
			"code": "INTERNAL", "message": "internal error",
		}})
		return
	}

	body := gin.H{"code": string(e.Kind), "message": e.Message}
	if e.Code != "" {
		body["reason"] = e.Code
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindUnauthenticated:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindDependencyFailure:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": body})
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code": "VALIDATION_FAILED", "message": "invalid " + name,
		}})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
		"code": "VALIDATION_FAILED", "message": msg,
	}})
}
