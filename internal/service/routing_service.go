package service

import (
	"context"
	"fmt"
	"strings"

	"dira-go/internal/model"
	"dira-go/internal/repository"
	"dira-go/pkg/feed"
	"dira-go/pkg/log"
	"dira-go/pkg/nlp"
)

// categoryOrgTypes lists which organisation types handle each category.
// Categories not listed go to every organisation.
var categoryOrgTypes = map[string][]string{
	nlp.CategoryInfrastructure: {model.OrgTypeUtility, model.OrgTypeGovernment},
	nlp.CategoryUtility:        {model.OrgTypeUtility},
	nlp.CategorySafety:         {model.OrgTypeGovernment},
	nlp.CategoryEnvironment:    {model.OrgTypeGovernment},
}

// RoutingService sends reports to the organisations responsible for them.
type RoutingService interface {
	// Route creates one route per matching organisation and marks the report routed.
	Route(ctx context.Context, reportID string) ([]model.ReportRoute, error)
	CreateRoute(ctx context.Context, route *model.ReportRoute) error
	ListByReport(ctx context.Context, reportID string) ([]model.ReportRoute, error)
	ListByOrganisation(ctx context.Context, organisationID string) ([]model.ReportRoute, error)
}

type routingService struct {
	reportRepo repository.ReportRepository
	orgRepo    repository.OrganisationRepository
	routeRepo  repository.RouteRepository
	publisher  feed.Publisher
}

// NewRoutingService creates a RoutingService.
func NewRoutingService(reportRepo repository.ReportRepository, orgRepo repository.OrganisationRepository, routeRepo repository.RouteRepository, publisher feed.Publisher) RoutingService {
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &routingService{reportRepo: reportRepo, orgRepo: orgRepo, routeRepo: routeRepo, publisher: publisher}
}

// orgTypesFor returns the organisation types for a category; nil means all.
func orgTypesFor(category *string) []string {
	if category == nil {
		return nil
	}
	return categoryOrgTypes[*category]
}

func (s *routingService) Route(ctx context.Context, reportID string) ([]model.ReportRoute, error) {
	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		return nil, translate(err, "find report")
	}

	var orgs []model.Organisation
	if types := orgTypesFor(report.Category); types != nil {
		orgs, err = s.orgRepo.FindByTypes(ctx, types...)
	} else {
		orgs, err = s.orgRepo.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("find organisations: %w", err)
	}
	if len(orgs) == 0 {
		log.Warnf("[RoutingService] no organisation accepts report %s, leaving it %s", report.ID, report.Status)
		return []model.ReportRoute{}, nil
	}

	message := draftMessage(report)
	routes := make([]model.ReportRoute, len(orgs))
	for i, org := range orgs {
		msg := message
		routes[i] = model.ReportRoute{ReportID: report.ID, OrganisationID: org.ID, Message: &msg, Status: "sent"}
	}
	if err := s.routeRepo.RouteReport(ctx, report.ID, routes); err != nil {
		return nil, translate(err, "route report")
	}

	names := make([]string, len(orgs))
	for i, org := range orgs {
		names[i] = org.Name
	}
	log.Infow("[RoutingService] report routed", "report_id", report.ID, "organisations", names)
	s.publisher.Publish(feed.Event{
		Type:     feed.EventReportRouted,
		ReportID: report.ID,
		Data:     map[string]interface{}{"organisations": names},
	})
	return routes, nil
}

func draftMessage(r *model.Report) string {
	category, urgency := "uncategorised", "unassessed"
	if r.Category != nil {
		category = *r.Category
	}
	if r.Urgency != nil {
		urgency = *r.Urgency
	}
	var b strings.Builder
	fmt.Fprintf(&b, "New %s report (urgency: %s): %s\n\n", category, urgency, r.Title)
	b.WriteString(r.Description)
	fmt.Fprintf(&b, "\n\nReport ID: %s\nSubmitted: %s", r.ID, r.SubmittedAt.Format("2006-01-02 15:04 MST"))
	return b.String()
}

func (s *routingService) CreateRoute(ctx context.Context, route *model.ReportRoute) error {
	if route.ReportID == "" || route.OrganisationID == "" {
		return fmt.Errorf("%w: reportId and organisationId are required", ErrInvalidInput)
	}
	if _, err := s.reportRepo.FindByID(ctx, route.ReportID); err != nil {
		return translate(err, "find report")
	}
	if _, err := s.orgRepo.FindByID(ctx, route.OrganisationID); err != nil {
		return translate(err, "find organisation")
	}
	if route.Status == "" {
		route.Status = "sent"
	}
	if err := s.routeRepo.Create(ctx, route); err != nil {
		return translate(err, "create route")
	}
	return nil
}

func (s *routingService) ListByReport(ctx context.Context, reportID string) ([]model.ReportRoute, error) {
	return s.routeRepo.ListByReport(ctx, reportID)
}

func (s *routingService) ListByOrganisation(ctx context.Context, organisationID string) ([]model.ReportRoute, error) {
	return s.routeRepo.ListByOrganisation(ctx, organisationID)
}
