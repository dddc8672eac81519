package handler

import (
	"dira-go/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Reports       *ReportHandler
	Reporters     *ReporterHandler
	Organisations *OrganisationHandler
	Routes        *RouteHandler
	Related       *RelatedHandler
	NLP           *NLPHandler
	Analytics     *AnalyticsHandler
	System        *SystemHandler
}

// NewRouter registers the /api/v1 routes. intakeLimit guards the endpoints that create reports
// or call the embedding provider; it may be nil.
func NewRouter(h Handlers, intakeLimit gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	limited := []gin.HandlerFunc{}
	if intakeLimit != nil {
		limited = append(limited, intakeLimit)
	}
	with := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, limited...), handler)
	}

	r.GET("/health", h.System.Health)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/health", h.System.Health)
		apiV1.GET("/feed", h.System.Feed)
		apiV1.GET("/analytics", h.Analytics.Get)

		reporters := apiV1.Group("/reporters")
		{
			reporters.POST("", h.Reporters.Create)
			reporters.GET("/:id", h.Reporters.Get)
			reporters.GET("/email/:email", h.Reporters.GetByEmail)
		}

		reports := apiV1.Group("/reports")
		{
			reports.POST("", with(h.Reports.Submit)...)
			reports.GET("", h.Reports.List)
			reports.GET("/status/:status", h.Reports.ListByStatus)
			reports.GET("/category/:category", h.Reports.ListByCategory)
			reports.GET("/:id", h.Reports.Get)
			reports.GET("/:id/image", h.Reports.ImageURL)
			reports.PATCH("/:id", h.Reports.Update)
			reports.DELETE("/:id", h.Reports.Delete)
		}

		orgs := apiV1.Group("/organisations")
		{
			orgs.GET("", h.Organisations.List)
			orgs.GET("/type/:type", h.Organisations.ListByType)
			orgs.GET("/:id", h.Organisations.Get)
		}

		routes := apiV1.Group("/report_routes")
		{
			routes.POST("", h.Routes.Create)
			routes.GET("/report/:id", h.Routes.ListByReport)
			routes.GET("/organisation/:id", h.Routes.ListByOrganisation)
		}

		related := apiV1.Group("/related_reports")
		{
			related.POST("", h.Related.Link)
			related.GET("/:id", h.Related.List)
			related.GET("/:id/duplicates", h.Related.Duplicates)
		}

		nlp := apiV1.Group("/nlp")
		{
			nlp.POST("/classify", with(h.NLP.Classify)...)
			nlp.POST("/assess_urgency", h.NLP.AssessUrgency)
			nlp.POST("/extract_entities", with(h.NLP.ExtractEntities)...)
			nlp.POST("/store_embedding", with(h.NLP.StoreEmbedding)...)
			nlp.POST("/find_duplicates", with(h.NLP.FindDuplicates)...)
			nlp.POST("/search", with(h.NLP.Search)...)
		}
	}
	return r
}
