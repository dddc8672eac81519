package handler

import (
	"net/http"

	"dira-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ReporterHandler serves reporter registration and lookup.
type ReporterHandler struct {
	reporters service.ReporterService
}

// NewReporterHandler creates a ReporterHandler.
func NewReporterHandler(reporters service.ReporterService) *ReporterHandler {
	return &ReporterHandler{reporters: reporters}
}

type createReporterRequest struct {
	Name      *string `json:"name"`
	Email     string  `json:"email" binding:"required"`
	Anonymous bool    `json:"isAnonymous"`
}

// Create registers a reporter.
func (h *ReporterHandler) Create(c *gin.Context) {
	var req createReporterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	reporter, err := h.reporters.Create(c.Request.Context(), req.Name, req.Email, req.Anonymous)
	if err != nil {
		failErr(c, "create reporter", err)
		return
	}
	ok(c, http.StatusCreated, "reporter created", reporter)
}

// Get returns a reporter by id.
func (h *ReporterHandler) Get(c *gin.Context) {
	reporter, err := h.reporters.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, "get reporter", err)
		return
	}
	ok(c, http.StatusOK, "ok", reporter)
}

// GetByEmail returns a reporter by email address.
func (h *ReporterHandler) GetByEmail(c *gin.Context) {
	reporter, err := h.reporters.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		failErr(c, "get reporter by email", err)
		return
	}
	ok(c, http.StatusOK, "ok", reporter)
}
