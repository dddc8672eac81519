package handler

import (
	"net/http"

	"dira-go/internal/service"

	"github.com/gin-gonic/gin"
)

// OrganisationHandler serves the read-only organisation directory.
type OrganisationHandler struct {
	orgs service.OrganisationService
}

// NewOrganisationHandler creates an OrganisationHandler.
func NewOrganisationHandler(orgs service.OrganisationService) *OrganisationHandler {
	return &OrganisationHandler{orgs: orgs}
}

// List returns every organisation.
func (h *OrganisationHandler) List(c *gin.Context) {
	orgs, err := h.orgs.List(c.Request.Context())
	if err != nil {
		failErr(c, "list organisations", err)
		return
	}
	ok(c, http.StatusOK, "ok", orgs)
}

// ListByType returns organisations of one type.
func (h *OrganisationHandler) ListByType(c *gin.Context) {
	orgs, err := h.orgs.ListByType(c.Request.Context(), c.Param("type"))
	if err != nil {
		failErr(c, "list organisations by type", err)
		return
	}
	ok(c, http.StatusOK, "ok", orgs)
}

// Get returns one organisation.
func (h *OrganisationHandler) Get(c *gin.Context) {
	org, err := h.orgs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, "get organisation", err)
		return
	}
	ok(c, http.StatusOK, "ok", org)
}
