// Package handler contains the gin handlers of the HTTP API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"dira-go/internal/service"
	"dira-go/pkg/log"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 25
	maxRequestImage  = 10 << 20
)

func ok(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"code": status, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "error": message})
}

// statusFor maps service sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidThreshold),
		errors.Is(err, service.ErrInvalidLimit),
		errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, service.ErrInvalidRelationship),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrReferentialIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// failErr writes err with its mapped status. Unexpected errors are logged and hidden from the client.
func failErr(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorf("[Handler] %s failed: %v", op, err)
		fail(c, status, "internal error")
		return
	}
	if status == http.StatusServiceUnavailable {
		log.Warnf("[Handler] %s: %v", op, err)
	}
	fail(c, status, err.Error())
}

// pageParams reads limit and offset; limit defaults to 25.
func pageParams(c *gin.Context) (limit, offset int, err error) {
	limit, offset = defaultPageLimit, 0
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, service.ErrInvalidLimit
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, service.ErrInvalidInput
		}
	}
	return limit, offset, nil
}

// floatQuery parses an optional float query parameter.
func floatQuery(c *gin.Context, key string, def float64, invalid error) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, invalid
	}
	return f, nil
}
