package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"dira-go/internal/model"
	"dira-go/internal/repository"
	"dira-go/pkg/feed"
	"dira-go/pkg/tasks"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[string]*model.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: map[string]*model.Report{}}
}

func (f *fakeReportRepo) Create(ctx context.Context, r *model.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = model.StatusSubmitted
	}
	cp := *r
	f.reports[r.ID] = &cp
	return nil
}

func (f *fakeReportRepo) FindByID(ctx context.Context, id string) (*model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReportRepo) FindByIDs(ctx context.Context, ids []string) ([]model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Report
	for _, id := range ids {
		if r, ok := f.reports[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) filter(keep func(*model.Report) bool, limit, offset int) []model.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Report
	for _, r := range f.reports {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	if offset >= len(out) {
		return []model.Report{}
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeReportRepo) List(ctx context.Context, limit, offset int) ([]model.Report, error) {
	return f.filter(func(*model.Report) bool { return true }, limit, offset), nil
}

func (f *fakeReportRepo) FindByStatus(ctx context.Context, status string, limit, offset int) ([]model.Report, error) {
	return f.filter(func(r *model.Report) bool { return r.Status == status }, limit, offset), nil
}

func (f *fakeReportRepo) FindByCategory(ctx context.Context, category string, limit, offset int) ([]model.Report, error) {
	return f.filter(func(r *model.Report) bool { return r.Category != nil && *r.Category == category }, limit, offset), nil
}

func strPtr(s string) *string { return &s }

func (f *fakeReportRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range updates {
		switch k {
		case "title":
			r.Title = v.(string)
		case "description":
			r.Description = v.(string)
		case "category":
			r.Category = strPtr(v.(string))
		case "urgency":
			r.Urgency = strPtr(v.(string))
		case "status":
			r.Status = v.(string)
		case "image_object":
			r.ImageObject = strPtr(v.(string))
		case "confidence":
			c := v.(float64)
			r.Confidence = &c
		case "entities":
			r.Entities = v.(datatypes.JSON)
		case "resolved_at":
			if at, ok := v.(time.Time); ok {
				r.ResolvedAt = &at
			} else {
				r.ResolvedAt = nil
			}
		case "analysis_result":
			r.AnalysisResult = strPtr(v.(string))
		default:
			return errors.New("fake: unexpected column " + k)
		}
	}
	return nil
}

func (f *fakeReportRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.reports, id)
	return nil
}

func (f *fakeReportRepo) MarkEmbedded(ctx context.Context, id, embeddingModel string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.EmbeddingModel = &embeddingModel
	r.EmbeddedAt = &at
	return nil
}

func (f *fakeReportRepo) ListAfter(ctx context.Context, afterID string, limit int) ([]model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Report
	for _, r := range f.reports {
		if r.ID > afterID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type pair struct{ from, to string }

type fakeRelatedRepo struct {
	mu      sync.Mutex
	reports *fakeReportRepo
	edges   map[pair]*model.RelatedReport
}

func newFakeRelatedRepo(reports *fakeReportRepo) *fakeRelatedRepo {
	return &fakeRelatedRepo{reports: reports, edges: map[pair]*model.RelatedReport{}}
}

func (f *fakeRelatedRepo) Upsert(ctx context.Context, edge *model.RelatedReport) (*model.RelatedReport, error) {
	for _, id := range []string{edge.ReportID, edge.RelatedReportID} {
		if _, err := f.reports.FindByID(ctx, id); err != nil {
			return nil, repository.ErrReportMissing
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pair{edge.ReportID, edge.RelatedReportID}
	if existing, ok := f.edges[key]; ok {
		existing.SimilarityScore = edge.SimilarityScore
		existing.RelationshipType = edge.RelationshipType
		cp := *existing
		return &cp, nil
	}
	stored := *edge
	stored.ID = uuid.NewString()
	f.edges[key] = &stored
	cp := stored
	return &cp, nil
}

func (f *fakeRelatedRepo) list(keep func(*model.RelatedReport) bool) []model.RelatedReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.RelatedReport{}
	for _, e := range f.edges {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SimilarityScore != out[j].SimilarityScore {
			return out[i].SimilarityScore > out[j].SimilarityScore
		}
		return out[i].RelatedReportID < out[j].RelatedReportID
	})
	return out
}

func (f *fakeRelatedRepo) ListByReport(ctx context.Context, reportID string) ([]model.RelatedReport, error) {
	return f.list(func(e *model.RelatedReport) bool { return e.ReportID == reportID }), nil
}

func (f *fakeRelatedRepo) ListByType(ctx context.Context, reportID, relationshipType string, minScore float64) ([]model.RelatedReport, error) {
	return f.list(func(e *model.RelatedReport) bool {
		return e.ReportID == reportID && e.RelationshipType == relationshipType && e.SimilarityScore >= minScore
	}), nil
}

func (f *fakeRelatedRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edges)
}

// fakeEmbedder returns fixed vectors per text.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{}}
}

func (f *fakeEmbedder) set(title, description string, v ...float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[model.CanonicalText(title, description)] = v
}

func (f *fakeEmbedder) Model() string { return "fake-model" }

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("fake: no vector for " + text)
	}
	return v, nil
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.CreateEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fakeOrgRepo struct {
	orgs []model.Organisation
}

func (f *fakeOrgRepo) FindAll(ctx context.Context) ([]model.Organisation, error) {
	return f.orgs, nil
}

func (f *fakeOrgRepo) FindByTypes(ctx context.Context, types ...string) ([]model.Organisation, error) {
	var out []model.Organisation
	for _, o := range f.orgs {
		for _, t := range types {
			if o.Type == t {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

func (f *fakeOrgRepo) FindByID(ctx context.Context, id string) (*model.Organisation, error) {
	for _, o := range f.orgs {
		if o.ID == id {
			cp := o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrgRepo) UpsertByName(ctx context.Context, org *model.Organisation) error {
	for i, o := range f.orgs {
		if o.Name == org.Name {
			org.ID = o.ID
			f.orgs[i] = *org
			return nil
		}
	}
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	f.orgs = append(f.orgs, *org)
	return nil
}

type fakeRouteRepo struct {
	reports *fakeReportRepo
	routes  []model.ReportRoute
}

func (f *fakeRouteRepo) Create(ctx context.Context, route *model.ReportRoute) error {
	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	f.routes = append(f.routes, *route)
	return nil
}

func (f *fakeRouteRepo) RouteReport(ctx context.Context, reportID string, routes []model.ReportRoute) error {
	if err := f.reports.Update(ctx, reportID, map[string]interface{}{"status": model.StatusRouted}); err != nil {
		return repository.ErrReportMissing
	}
	for i := range routes {
		if err := f.Create(ctx, &routes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRouteRepo) ListByReport(ctx context.Context, reportID string) ([]model.ReportRoute, error) {
	var out []model.ReportRoute
	for _, r := range f.routes {
		if r.ReportID == reportID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRouteRepo) ListByOrganisation(ctx context.Context, organisationID string) ([]model.ReportRoute, error) {
	var out []model.ReportRoute
	for _, r := range f.routes {
		if r.OrganisationID == organisationID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeReporterRepo struct {
	mu        sync.Mutex
	reporters map[string]*model.Reporter
}

func newFakeReporterRepo() *fakeReporterRepo {
	return &fakeReporterRepo{reporters: map[string]*model.Reporter{}}
}

func (f *fakeReporterRepo) Create(ctx context.Context, r *model.Reporter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reporters {
		if existing.Email == r.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	cp := *r
	f.reporters[r.ID] = &cp
	return nil
}

func (f *fakeReporterRepo) FindByID(ctx context.Context, id string) (*model.Reporter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reporters[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReporterRepo) FindByEmail(ctx context.Context, email string) (*model.Reporter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reporters {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []feed.Event
}

func (p *recordingPublisher) Publish(e feed.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingDispatcher struct {
	tasks []tasks.ReportTask
	err   error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, task tasks.ReportTask) error {
	d.tasks = append(d.tasks, task)
	return d.err
}
