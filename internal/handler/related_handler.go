package handler

import (
	"net/http"

	"dira-go/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultDuplicateListThreshold = 0.9

// RelatedHandler serves the report relationship graph.
type RelatedHandler struct {
	relationships service.RelationshipService
}

// NewRelatedHandler creates a RelatedHandler.
func NewRelatedHandler(relationships service.RelationshipService) *RelatedHandler {
	return &RelatedHandler{relationships: relationships}
}

type linkRequest struct {
	ReportID         string   `json:"reportId" binding:"required"`
	RelatedReportID  string   `json:"relatedReportId" binding:"required"`
	SimilarityScore  *float64 `json:"similarityScore" binding:"required"`
	RelationshipType string   `json:"relationshipType"`
}

// Link upserts the edge reportId -> relatedReportId.
func (h *RelatedHandler) Link(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id, err := h.relationships.Link(c.Request.Context(), req.ReportID, req.RelatedReportID, *req.SimilarityScore, req.RelationshipType)
	if err != nil {
		failErr(c, "link reports", err)
		return
	}
	ok(c, http.StatusOK, "reports linked", gin.H{"id": id})
}

// List returns every edge leaving a report.
func (h *RelatedHandler) List(c *gin.Context) {
	edges, err := h.relationships.ListRelated(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, "list related reports", err)
		return
	}
	ok(c, http.StatusOK, "ok", edges)
}

// Duplicates returns duplicate edges scoring at least ?threshold (default 0.9).
func (h *RelatedHandler) Duplicates(c *gin.Context) {
	threshold, err := floatQuery(c, "threshold", defaultDuplicateListThreshold, service.ErrInvalidThreshold)
	if err != nil {
		failErr(c, "list duplicates", err)
		return
	}
	edges, err := h.relationships.ListDuplicates(c.Request.Context(), c.Param("id"), threshold)
	if err != nil {
		failErr(c, "list duplicates", err)
		return
	}
	ok(c, http.StatusOK, "ok", edges)
}
