package handler

import (
	"fmt"
	"net/http"

	"dira-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves report intake and maintenance.
type ReportHandler struct {
	reports service.ReportService
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type submitReportRequest struct {
	Title         string  `json:"title" form:"title"`
	Description   string  `json:"description" form:"description"`
	ReporterID    *string `json:"reporterId" form:"reporterId"`
	ReporterEmail *string `json:"reporterEmail" form:"reporterEmail"`
	ReporterName  *string `json:"reporterName" form:"reporterName"`
	Anonymous     bool    `json:"isAnonymous" form:"isAnonymous"`
}

type updateReportRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Urgency     *string `json:"urgency"`
	Status      *string `json:"status"`
}

// Submit accepts a JSON body, or multipart form fields with an optional "image" file.
func (h *ReportHandler) Submit(c *gin.Context) {
	var req submitReportRequest
	in := service.SubmitReportInput{}

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		if err := c.ShouldBind(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid form: "+err.Error())
			return
		}
		if header, err := c.FormFile("image"); err == nil {
			if header.Size > maxRequestImage {
				fail(c, http.StatusBadRequest, fmt.Sprintf("image larger than %d bytes", maxRequestImage))
				return
			}
			file, err := header.Open()
			if err != nil {
				fail(c, http.StatusBadRequest, "unreadable image")
				return
			}
			defer file.Close()
			in.Image = &service.ImageUpload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	in.Title = req.Title
	in.Description = req.Description
	in.ReporterID = req.ReporterID
	in.ReporterEmail = req.ReporterEmail
	in.ReporterName = req.ReporterName
	in.Anonymous = req.Anonymous

	report, err := h.reports.Submit(c.Request.Context(), in)
	if err != nil {
		failErr(c, "submit report", err)
		return
	}
	ok(c, http.StatusCreated, "report submitted", report)
}

// Get returns one report.
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, "get report", err)
		return
	}
	ok(c, http.StatusOK, "ok", report)
}

// List returns reports newest first.
func (h *ReportHandler) List(c *gin.Context) {
	limit, offset, err := pageParams(c)
	if err != nil {
		failErr(c, "list reports", err)
		return
	}
	reports, err := h.reports.List(c.Request.Context(), limit, offset)
	if err != nil {
		failErr(c, "list reports", err)
		return
	}
	ok(c, http.StatusOK, "ok", reports)
}

// ListByStatus returns reports in one status.
func (h *ReportHandler) ListByStatus(c *gin.Context) {
	limit, offset, err := pageParams(c)
	if err != nil {
		failErr(c, "list reports by status", err)
		return
	}
	reports, err := h.reports.ListByStatus(c.Request.Context(), c.Param("status"), limit, offset)
	if err != nil {
		failErr(c, "list reports by status", err)
		return
	}
	ok(c, http.StatusOK, "ok", reports)
}

// ListByCategory returns reports in one category.
func (h *ReportHandler) ListByCategory(c *gin.Context) {
	limit, offset, err := pageParams(c)
	if err != nil {
		failErr(c, "list reports by category", err)
		return
	}
	reports, err := h.reports.ListByCategory(c.Request.Context(), c.Param("category"), limit, offset)
	if err != nil {
		failErr(c, "list reports by category", err)
		return
	}
	ok(c, http.StatusOK, "ok", reports)
}

// Update applies a partial update.
func (h *ReportHandler) Update(c *gin.Context) {
	var req updateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	report, err := h.reports.Update(c.Request.Context(), c.Param("id"), service.ReportUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Urgency:     req.Urgency,
		Status:      req.Status,
	})
	if err != nil {
		failErr(c, "update report", err)
		return
	}
	ok(c, http.StatusOK, "report updated", report)
}

// Delete removes a report with its embedding, image and relationships.
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, "delete report", err)
		return
	}
	ok(c, http.StatusOK, "report deleted", nil)
}

// ImageURL returns a presigned URL for the report image.
func (h *ReportHandler) ImageURL(c *gin.Context) {
	url, err := h.reports.ImageURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, "image url", err)
		return
	}
	ok(c, http.StatusOK, "ok", gin.H{"url": url})
}
