package handler

import (
	"net/http"

	"dira-go/internal/service"

	"github.com/gin-gonic/gin"
)

// NLPHandler exposes classification, urgency, entity extraction and the duplicate detector.
type NLPHandler struct {
	classifier service.ClassificationService
	duplicates service.DuplicateService
}

// NewNLPHandler creates an NLPHandler.
func NewNLPHandler(classifier service.ClassificationService, duplicates service.DuplicateService) *NLPHandler {
	return &NLPHandler{classifier: classifier, duplicates: duplicates}
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

type storeEmbeddingRequest struct {
	ReportID string `json:"reportId" binding:"required"`
	Text     string `json:"text"`
}

type findDuplicatesRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ExcludeID   string   `json:"excludeId"`
	Threshold   *float64 `json:"threshold"`
	Limit       *int     `json:"limit"`
}

type searchRequest struct {
	Text     string `json:"text" binding:"required"`
	Limit    *int   `json:"limit"`
	Category string `json:"category"`
}

func bindText(c *gin.Context) (string, bool) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return "", false
	}
	return req.Text, true
}

// Classify returns the category of a text.
func (h *NLPHandler) Classify(c *gin.Context) {
	text, bound := bindText(c)
	if !bound {
		return
	}
	result, err := h.classifier.Classify(c.Request.Context(), text)
	if err != nil {
		failErr(c, "classify", err)
		return
	}
	ok(c, http.StatusOK, "ok", result)
}

// AssessUrgency returns the urgency of a text.
func (h *NLPHandler) AssessUrgency(c *gin.Context) {
	text, bound := bindText(c)
	if !bound {
		return
	}
	ok(c, http.StatusOK, "ok", gin.H{"urgency": h.classifier.AssessUrgency(text)})
}

// ExtractEntities returns organisations, locations and persons named in a text.
func (h *NLPHandler) ExtractEntities(c *gin.Context) {
	text, bound := bindText(c)
	if !bound {
		return
	}
	ok(c, http.StatusOK, "ok", h.classifier.ExtractEntities(c.Request.Context(), text))
}

// StoreEmbedding (re)computes the embedding of a report.
func (h *NLPHandler) StoreEmbedding(c *gin.Context) {
	var req storeEmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.duplicates.StoreEmbedding(c.Request.Context(), req.ReportID, req.Text); err != nil {
		failErr(c, "store embedding", err)
		return
	}
	ok(c, http.StatusOK, "embedding stored", gin.H{"reportId": req.ReportID})
}

// FindDuplicates ranks stored reports against a title and description.
func (h *NLPHandler) FindDuplicates(c *gin.Context) {
	var req findDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	q := service.DuplicateQuery{
		Title:       req.Title,
		Description: req.Description,
		ExcludeID:   req.ExcludeID,
		Threshold:   service.DefaultDuplicateThreshold,
		Limit:       service.DefaultLimit,
	}
	if req.Threshold != nil {
		q.Threshold = *req.Threshold
	}
	if req.Limit != nil {
		q.Limit = *req.Limit
	}
	candidates, err := h.duplicates.FindDuplicates(c.Request.Context(), q)
	if err != nil {
		failErr(c, "find duplicates", err)
		return
	}
	ok(c, http.StatusOK, "ok", candidates)
}

// Search ranks stored reports against free text without a threshold.
func (h *NLPHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	limit := service.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	candidates, err := h.duplicates.SearchByText(c.Request.Context(), req.Text, limit, req.Category)
	if err != nil {
		failErr(c, "search", err)
		return
	}
	ok(c, http.StatusOK, "ok", candidates)
}
