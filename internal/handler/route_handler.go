package handler

import (
	"net/http"

	"dira-go/internal/model"
	"dira-go/internal/service"

	"github.com/gin-gonic/gin"
)

// RouteHandler serves report routes.
type RouteHandler struct {
	routing service.RoutingService
}

// NewRouteHandler creates a RouteHandler.
func NewRouteHandler(routing service.RoutingService) *RouteHandler {
	return &RouteHandler{routing: routing}
}

type createRouteRequest struct {
	ReportID       string  `json:"reportId" binding:"required"`
	OrganisationID string  `json:"organisationId" binding:"required"`
	Message        *string `json:"message"`
	Status         string  `json:"status"`
}

// Create records a manual route.
func (h *RouteHandler) Create(c *gin.Context) {
	var req createRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	route := &model.ReportRoute{
		ReportID:       req.ReportID,
		OrganisationID: req.OrganisationID,
		Message:        req.Message,
		Status:         req.Status,
	}
	if err := h.routing.CreateRoute(c.Request.Context(), route); err != nil {
		failErr(c, "create route", err)
		return
	}
	ok(c, http.StatusCreated, "route created", route)
}

// ListByReport returns the routes of a report.
func (h *RouteHandler) ListByReport(c *gin.Context) {
	routes, err := h.routing.ListByReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, "list routes by report", err)
		return
	}
	ok(c, http.StatusOK, "ok", routes)
}

// ListByOrganisation returns the routes sent to an organisation.
func (h *RouteHandler) ListByOrganisation(c *gin.Context) {
	routes, err := h.routing.ListByOrganisation(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, "list routes by organisation", err)
		return
	}
	ok(c, http.StatusOK, "ok", routes)
}
