package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dira-go/internal/middleware"
	"dira-go/internal/model"
	"dira-go/internal/service"
	"dira-go/pkg/nlp"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubReportService struct {
	service.ReportService
	submitted service.SubmitReportInput
	image     []byte
	reports   map[string]*model.Report
	listArgs  [2]int
}

func (s *stubReportService) Submit(ctx context.Context, in service.SubmitReportInput) (*model.Report, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title and description are required", service.ErrInvalidInput)
	}
	s.submitted = in
	if in.Image != nil {
		s.image, _ = io.ReadAll(in.Image.Body)
	}
	return &model.Report{ID: "r1", Title: in.Title, Description: in.Description, Status: model.StatusSubmitted}, nil
}

func (s *stubReportService) Get(ctx context.Context, id string) (*model.Report, error) {
	if r, ok := s.reports[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("find report: %w", service.ErrNotFound)
}

func (s *stubReportService) List(ctx context.Context, limit, offset int) ([]model.Report, error) {
	s.listArgs = [2]int{limit, offset}
	if limit > 100 {
		return nil, service.ErrInvalidLimit
	}
	return []model.Report{}, nil
}

type stubRelationshipService struct {
	service.RelationshipService
	threshold float64
}

func (s *stubRelationshipService) Link(ctx context.Context, from, to string, score float64, relType string) (string, error) {
	if to == "missing" {
		return "", fmt.Errorf("upsert relationship: %w", service.ErrReferentialIntegrity)
	}
	return "edge-1", nil
}

func (s *stubRelationshipService) ListDuplicates(ctx context.Context, id string, threshold float64) ([]model.RelatedReport, error) {
	s.threshold = threshold
	return []model.RelatedReport{}, nil
}

type stubDuplicateService struct {
	service.DuplicateService
	query service.DuplicateQuery
	err   error
}

func (s *stubDuplicateService) FindDuplicates(ctx context.Context, q service.DuplicateQuery) ([]model.ReportCandidate, error) {
	s.query = q
	if s.err != nil {
		return nil, s.err
	}
	return []model.ReportCandidate{{ID: "r9", SimilarityScore: 0.91}}, nil
}

type stubStatsService struct {
	months int
}

func (s *stubStatsService) Analytics(ctx context.Context, months int) (*service.Analytics, error) {
	if months < 1 || months > service.MaxTrendMonths {
		return nil, fmt.Errorf("%w: months out of range", service.ErrInvalidInput)
	}
	s.months = months
	return &service.Analytics{
		TotalReports:    3,
		ResolvedReports: 1,
		ReportsByStatus: map[string]int64{"resolved": 1, "routed": 2},
		MonthlyTrend:    []service.MonthlyCount{{Month: "2026-10", Reports: 3, Resolved: 1}},
	}, nil
}

type apiFixture struct {
	stats      *stubStatsService
	reports    *stubReportService
	related    *stubRelationshipService
	duplicates *stubDuplicateService
	checks     map[string]HealthCheck
	router     *gin.Engine
}

func newAPIFixture(intakeLimit gin.HandlerFunc) *apiFixture {
	f := &apiFixture{
		reports:    &stubReportService{reports: map[string]*model.Report{}},
		related:    &stubRelationshipService{},
		duplicates: &stubDuplicateService{},
		stats:      &stubStatsService{},
		checks:     map[string]HealthCheck{"database": func(context.Context) error { return nil }},
	}
	f.router = NewRouter(Handlers{
		Reports:       NewReportHandler(f.reports),
		Reporters:     NewReporterHandler(nil),
		Organisations: NewOrganisationHandler(nil),
		Routes:        NewRouteHandler(nil),
		Related:       NewRelatedHandler(f.related),
		NLP:           NewNLPHandler(service.NewClassificationService(nil, nil), f.duplicates),
		Analytics:     NewAnalyticsHandler(f.stats),
		System:        NewSystemHandler(f.checks, nil),
	}, intakeLimit)
	return f
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.serve(t, req)
}

func (f *apiFixture) serve(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidThreshold, http.StatusBadRequest},
		{service.ErrInvalidLimit, http.StatusBadRequest},
		{service.ErrInvalidScore, http.StatusBadRequest},
		{fmt.Errorf("link: %w", service.ErrInvalidRelationship), http.StatusBadRequest},
		{fmt.Errorf("get: %w", service.ErrNotFound), http.StatusNotFound},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrReferentialIntegrity, http.StatusUnprocessableEntity},
		{service.ErrDimensionMismatch, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestSubmitReportJSON(t *testing.T) {
	f := newAPIFixture(nil)

	code, env := f.do(t, http.MethodPost, "/api/v1/reports", gin.H{
		"title": "Burst pipe", "description": "Water everywhere", "reporterEmail": "a@example.com",
	})
	assert.Equal(t, http.StatusCreated, code)
	var report model.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "r1", report.ID)
	require.NotNil(t, f.reports.submitted.ReporterEmail)
	assert.Equal(t, "a@example.com", *f.reports.submitted.ReporterEmail)

	code, env = f.do(t, http.MethodPost, "/api/v1/reports", gin.H{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "title")
}

func TestSubmitReportMultipart(t *testing.T) {
	f := newAPIFixture(nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Pothole"))
	require.NoError(t, mw.WriteField("description", "Deep hole on Ngong Road"))
	require.NoError(t, mw.WriteField("isAnonymous", "true"))
	part, err := mw.CreateFormFile("image", "hole.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, _ := f.serve(t, req)

	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Pothole", f.reports.submitted.Title)
	assert.True(t, f.reports.submitted.Anonymous)
	require.NotNil(t, f.reports.submitted.Image)
	assert.Equal(t, "hole.jpg", f.reports.submitted.Image.Filename)
	assert.Equal(t, []byte("jpeg-bytes"), f.reports.image)
}

func TestGetReport(t *testing.T) {
	f := newAPIFixture(nil)
	f.reports.reports["r1"] = &model.Report{ID: "r1", Title: "t", SubmittedAt: time.Now()}

	code, _ := f.do(t, http.MethodGet, "/api/v1/reports/r1", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := f.do(t, http.MethodGet, "/api/v1/reports/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func TestListReportsPaging(t *testing.T) {
	f := newAPIFixture(nil)

	code, _ := f.do(t, http.MethodGet, "/api/v1/reports", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, [2]int{defaultPageLimit, 0}, f.reports.listArgs)

	code, _ = f.do(t, http.MethodGet, "/api/v1/reports?limit=5&offset=10", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, [2]int{5, 10}, f.reports.listArgs)

	code, _ = f.do(t, http.MethodGet, "/api/v1/reports?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodGet, "/api/v1/reports?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLinkRelatedReports(t *testing.T) {
	f := newAPIFixture(nil)

	code, env := f.do(t, http.MethodPost, "/api/v1/related_reports", gin.H{
		"reportId": "r2", "relatedReportId": "r1", "similarityScore": 0.93,
	})
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":"edge-1"}`, string(env.Data))

	code, _ = f.do(t, http.MethodPost, "/api/v1/related_reports", gin.H{
		"reportId": "r2", "relatedReportId": "missing", "similarityScore": 0.93,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = f.do(t, http.MethodPost, "/api/v1/related_reports", gin.H{"reportId": "r2", "relatedReportId": "r1"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListDuplicatesThreshold(t *testing.T) {
	f := newAPIFixture(nil)

	code, _ := f.do(t, http.MethodGet, "/api/v1/related_reports/r1/duplicates", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, defaultDuplicateListThreshold, f.related.threshold)

	code, _ = f.do(t, http.MethodGet, "/api/v1/related_reports/r1/duplicates?threshold=0.75", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.75, f.related.threshold)

	code, _ = f.do(t, http.MethodGet, "/api/v1/related_reports/r1/duplicates?threshold=high", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFindDuplicatesDefaultsAndOutage(t *testing.T) {
	f := newAPIFixture(nil)

	code, env := f.do(t, http.MethodPost, "/api/v1/nlp/find_duplicates", gin.H{"title": "t", "description": "d"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, service.DefaultDuplicateThreshold, f.duplicates.query.Threshold)
	assert.Equal(t, service.DefaultLimit, f.duplicates.query.Limit)
	var candidates []model.ReportCandidate
	require.NoError(t, json.Unmarshal(env.Data, &candidates))
	require.Len(t, candidates, 1)
	assert.Equal(t, 0.91, candidates[0].SimilarityScore)

	f.duplicates.err = fmt.Errorf("%w: connection refused", service.ErrProviderUnavailable)
	code, _ = f.do(t, http.MethodPost, "/api/v1/nlp/find_duplicates", gin.H{"title": "t", "threshold": 0.5, "limit": 3})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, 0.5, f.duplicates.query.Threshold)
	assert.Equal(t, 3, f.duplicates.query.Limit)
}

func TestClassifyEndpoints(t *testing.T) {
	f := newAPIFixture(nil)

	code, env := f.do(t, http.MethodPost, "/api/v1/nlp/classify", gin.H{"text": "No water and the pipe is leaking"})
	assert.Equal(t, http.StatusOK, code)
	var result service.ClassificationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, nlp.CategoryUtility, result.Category)

	code, env = f.do(t, http.MethodPost, "/api/v1/nlp/assess_urgency", gin.H{"text": "urgent help"})
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"urgency":"high"}`, string(env.Data))

	code, _ = f.do(t, http.MethodPost, "/api/v1/nlp/classify", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(nil)
	code, _ := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	f.checks["redis"] = func(context.Context) error { return errors.New("connection refused") }
	code, env := f.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"database":"ok","redis":"connection refused"}`, string(env.Data))
}

func TestFeedDisabled(t *testing.T) {
	f := newAPIFixture(nil)
	code, _ := f.do(t, http.MethodGet, "/api/v1/feed", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestIntakeIsRateLimited(t *testing.T) {
	f := newAPIFixture(middleware.RateLimit(middleware.NewIPRateLimiter(0.001, 1)))

	code, _ := f.do(t, http.MethodPost, "/api/v1/reports", gin.H{"title": "t", "description": "d"})
	assert.Equal(t, http.StatusCreated, code)
	code, _ = f.do(t, http.MethodPost, "/api/v1/reports", gin.H{"title": "t", "description": "d"})
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/reports", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAnalytics(t *testing.T) {
	f := newAPIFixture(nil)

	code, env := f.do(t, http.MethodGet, "/api/v1/analytics", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, service.DefaultTrendMonths, f.stats.months)
	var got service.Analytics
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, int64(3), got.TotalReports)
	assert.Equal(t, int64(1), got.ResolvedReports)
	assert.Equal(t, int64(2), got.ReportsByStatus["routed"])
	require.Len(t, got.MonthlyTrend, 1)
	assert.Equal(t, "2026-10", got.MonthlyTrend[0].Month)

	code, _ = f.do(t, http.MethodGet, "/api/v1/analytics?months=12", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 12, f.stats.months)

	code, _ = f.do(t, http.MethodGet, "/api/v1/analytics?months=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodGet, "/api/v1/analytics?months=99", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
