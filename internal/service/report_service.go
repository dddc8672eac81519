package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"dira-go/internal/model"
	"dira-go/internal/repository"
	"dira-go/pkg/feed"
	"dira-go/pkg/log"
	"dira-go/pkg/nlp"
	"dira-go/pkg/tasks"

	"gorm.io/datatypes"
)

// ImageStorage stores report images.
type ImageStorage interface {
	Put(ctx context.Context, reportID, filename string, r io.Reader, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, objectName string) (string, error)
	Remove(ctx context.Context, objectName string) error
}

// ImageUpload is an image attached to a new report.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SubmitReportInput is the intake request.
type SubmitReportInput struct {
	Title       string
	Description string
	ReporterID  *string
	// ReporterEmail, when set without ReporterID, attaches the report to that reporter, creating it if needed.
	ReporterEmail *string
	ReporterName  *string
	Anonymous     bool
	Image         *ImageUpload
}

// ReportUpdate holds the fields PATCH may change. Nil fields are left alone.
type ReportUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Urgency     *string
	Status      *string
}

// ReportService handles report intake and maintenance.
type ReportService interface {
	Submit(ctx context.Context, in SubmitReportInput) (*model.Report, error)
	Get(ctx context.Context, id string) (*model.Report, error)
	List(ctx context.Context, limit, offset int) ([]model.Report, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]model.Report, error)
	ListByCategory(ctx context.Context, category string, limit, offset int) ([]model.Report, error)
	Update(ctx context.Context, id string, upd ReportUpdate) (*model.Report, error)
	Delete(ctx context.Context, id string) error
	ImageURL(ctx context.Context, id string) (string, error)
	// SaveAnalysis stores the pipeline output on the report.
	SaveAnalysis(ctx context.Context, id string, confidence float64, entities []byte, analysis string) error
}

type reportService struct {
	reportRepo      repository.ReportRepository
	reporterService ReporterService
	duplicates      DuplicateService
	images          ImageStorage
	dispatcher      tasks.Dispatcher
	publisher       feed.Publisher
}

// NewReportService creates a ReportService. images may be nil when uploads are disabled.
func NewReportService(
	reportRepo repository.ReportRepository,
	reporterService ReporterService,
	duplicates DuplicateService,
	images ImageStorage,
	dispatcher tasks.Dispatcher,
	publisher feed.Publisher,
) ReportService {
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &reportService{
		reportRepo:      reportRepo,
		reporterService: reporterService,
		duplicates:      duplicates,
		images:          images,
		dispatcher:      dispatcher,
		publisher:       publisher,
	}
}

func (s *reportService) Submit(ctx context.Context, in SubmitReportInput) (*model.Report, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if in.Image != nil && s.images == nil {
		return nil, fmt.Errorf("%w: image uploads are disabled", ErrInvalidInput)
	}

	report := &model.Report{Title: in.Title, Description: in.Description, Status: model.StatusSubmitted}
	switch {
	case in.ReporterID != nil && *in.ReporterID != "":
		if _, err := s.reporterService.Get(ctx, *in.ReporterID); err != nil {
			return nil, err
		}
		report.ReporterID = in.ReporterID
	case in.ReporterEmail != nil && *in.ReporterEmail != "":
		reporter, err := s.reporterService.GetOrCreate(ctx, in.ReporterName, *in.ReporterEmail, in.Anonymous)
		if err != nil {
			return nil, err
		}
		report.ReporterID = &reporter.ID
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, translate(err, "create report")
	}
	log.Infow("[ReportService] report submitted", "report_id", report.ID)

	if in.Image != nil {
		objectName, err := s.images.Put(ctx, report.ID, in.Image.Filename, in.Image.Body, in.Image.Size, in.Image.ContentType)
		if err != nil {
			// The report is already stored; an image failure must not lose it.
			log.Errorf("[ReportService] image upload failed for report %s: %v", report.ID, err)
		} else if err := s.reportRepo.Update(ctx, report.ID, map[string]interface{}{"image_object": objectName}); err != nil {
			log.Errorf("[ReportService] saving image reference failed for report %s: %v", report.ID, err)
		} else {
			report.ImageObject = &objectName
		}
	}

	s.publisher.Publish(feed.Event{Type: feed.EventReportCreated, ReportID: report.ID, Data: map[string]string{"title": report.Title}})

	if err := s.dispatcher.Dispatch(ctx, tasks.ReportTask{ReportID: report.ID, SubmittedAt: report.SubmittedAt}); err != nil {
		log.Errorf("[ReportService] dispatching analysis for report %s failed: %v", report.ID, err)
	}
	return report, nil
}

func (s *reportService) Get(ctx context.Context, id string) (*model.Report, error) {
	r, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "find report")
	}
	return r, nil
}

func (s *reportService) List(ctx context.Context, limit, offset int) ([]model.Report, error) {
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}
	return s.reportRepo.List(ctx, limit, offset)
}

func (s *reportService) ListByStatus(ctx context.Context, status string, limit, offset int) ([]model.Report, error) {
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}
	return s.reportRepo.FindByStatus(ctx, status, limit, offset)
}

func (s *reportService) ListByCategory(ctx context.Context, category string, limit, offset int) ([]model.Report, error) {
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}
	return s.reportRepo.FindByCategory(ctx, category, limit, offset)
}

func validatePage(limit, offset int) error {
	if err := validateLimit(limit); err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}
	return nil
}

func (s *reportService) Update(ctx context.Context, id string, upd ReportUpdate) (*model.Report, error) {
	updates := map[string]interface{}{}
	reembed := false
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		updates["title"] = strings.TrimSpace(*upd.Title)
		reembed = true
	}
	if upd.Description != nil {
		if strings.TrimSpace(*upd.Description) == "" {
			return nil, fmt.Errorf("%w: description must not be empty", ErrInvalidInput)
		}
		updates["description"] = strings.TrimSpace(*upd.Description)
		reembed = true
	}
	if upd.Category != nil {
		if !nlp.ValidCategory(*upd.Category) {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, *upd.Category)
		}
		updates["category"] = *upd.Category
		// Vector backends that filter by category keep a copy of it.
		reembed = true
	}
	if upd.Urgency != nil {
		if !nlp.ValidUrgency(*upd.Urgency) {
			return nil, fmt.Errorf("%w: unknown urgency %q", ErrInvalidInput, *upd.Urgency)
		}
		updates["urgency"] = *upd.Urgency
	}
	if upd.Status != nil {
		if !model.ValidStatus(*upd.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *upd.Status)
		}
		updates["status"] = *upd.Status
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		switch {
		case *upd.Status == model.StatusResolved && current.Status != model.StatusResolved:
			updates["resolved_at"] = time.Now().UTC()
		case *upd.Status != model.StatusResolved && current.ResolvedAt != nil:
			updates["resolved_at"] = nil
		}
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	if err := s.reportRepo.Update(ctx, id, updates); err != nil {
		return nil, translate(err, "update report")
	}
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if reembed && report.EmbeddedAt != nil {
		if err := s.duplicates.StoreEmbedding(ctx, id, ""); err != nil {
			log.Warnf("[ReportService] re-embedding report %s failed: %v", id, err)
		}
	}
	return report, nil
}

func (s *reportService) Delete(ctx context.Context, id string) error {
	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.duplicates.DeleteEmbedding(ctx, id); err != nil {
		log.Warnf("[ReportService] removing embedding for report %s failed: %v", id, err)
	}
	if err := s.reportRepo.Delete(ctx, id); err != nil {
		return translate(err, "delete report")
	}
	if report.ImageObject != nil && s.images != nil {
		if err := s.images.Remove(ctx, *report.ImageObject); err != nil {
			log.Warnf("[ReportService] removing image %s failed: %v", *report.ImageObject, err)
		}
	}
	log.Infow("[ReportService] report deleted", "report_id", id)
	return nil
}

func (s *reportService) ImageURL(ctx context.Context, id string) (string, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if report.ImageObject == nil || s.images == nil {
		return "", fmt.Errorf("report image: %w", ErrNotFound)
	}
	url, err := s.images.PresignedURL(ctx, *report.ImageObject)
	if err != nil {
		return "", fmt.Errorf("presign image url: %w", err)
	}
	return url, nil
}

func (s *reportService) SaveAnalysis(ctx context.Context, id string, confidence float64, entities []byte, analysis string) error {
	err := s.reportRepo.Update(ctx, id, map[string]interface{}{
		"confidence":      confidence,
		"entities":        datatypes.JSON(entities),
		"analysis_result": analysis,
	})
	return translate(err, "save analysis")
}
