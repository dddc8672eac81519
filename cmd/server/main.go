// Package main starts the Dira HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dira-go/internal/config"
	"dira-go/internal/handler"
	"dira-go/internal/middleware"
	"dira-go/internal/pipeline"
	"dira-go/internal/repository"
	"dira-go/internal/service"
	"dira-go/pkg/database"
	"dira-go/pkg/embedding"
	"dira-go/pkg/feed"
	"dira-go/pkg/kafka"
	"dira-go/pkg/llm"
	"dira-go/pkg/log"
	"dira-go/pkg/storage"
	"dira-go/pkg/tasks"
	"dira-go/pkg/vectorstore"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// pipelineTimeout bounds one in-process analysis run.
const pipelineTimeout = 2 * time.Minute

func main() {
	defaultConfig := os.Getenv("DIRA_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "./configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfig, "path to config.yaml")
	flag.Parse()

	// 1. Configuration and logging.
	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("logger initialised")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Relational store, redis and vector store.
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("database init failed", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, cfg.Vector.Backend == "pgvector"); err != nil {
			log.Fatal("database migration failed", err)
		}
	}

	var rdb *redis.Client
	if cfg.Database.Redis.Addr != "" {
		rdb, err = database.OpenRedis(ctx, cfg.Database.Redis)
		if err != nil {
			log.Fatal("redis init failed", err)
		}
		defer rdb.Close()
	}

	embeddingClient, err := embedding.NewClient(cfg.Embedding, rdb)
	if err != nil {
		log.Fatal("embedding client init failed", err)
	}
	store, err := vectorstore.Open(ctx, cfg, db)
	if err != nil {
		log.Fatal("vector store init failed", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}
	log.Infof("vector backend %s, embedding model %s", cfg.Vector.Backend, embeddingClient.Model())

	var images service.ImageStorage
	if cfg.MinIO.Enabled {
		imageStore, err := storage.NewImageStore(ctx, cfg.MinIO)
		if err != nil {
			log.Fatal("minio init failed", err)
		}
		images = imageStore
	}

	hub := feed.NewHub()

	// 3. Repositories.
	reportRepo := repository.NewReportRepository(db)
	reporterRepo := repository.NewReporterRepository(db)
	orgRepo := repository.NewOrganisationRepository(db)
	routeRepo := repository.NewRouteRepository(db)
	relatedRepo := repository.NewRelatedReportRepository(db)

	// 4. Services. The processor is built after the report service, so the inline dispatcher resolves it late.
	var processor *pipeline.Processor
	var dispatcher tasks.Dispatcher
	var inline *tasks.InlineDispatcher
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka)
		dispatcher = producer
	} else {
		inline = tasks.NewInlineDispatcher(tasks.ProcessorFunc(func(ctx context.Context, task tasks.ReportTask) error {
			return processor.Process(ctx, task)
		}), pipelineTimeout)
		dispatcher = inline
	}

	var primary service.PrimaryClassifier
	if cfg.LLM.Enabled {
		primary = service.NewLLMClassifier(llm.NewClient(cfg.LLM))
	}

	reporterService := service.NewReporterService(reporterRepo)
	organisationService := service.NewOrganisationService(orgRepo)
	duplicateService := service.NewDuplicateService(embeddingClient, store, reportRepo, cfg.Embedding.Dimensions)
	relationshipService := service.NewRelationshipService(relatedRepo, reportRepo)
	classificationService := service.NewClassificationService(primary, nil)
	routingService := service.NewRoutingService(reportRepo, orgRepo, routeRepo, hub)
	reportService := service.NewReportService(reportRepo, reporterService, duplicateService, images, dispatcher, hub)
	statsService := service.NewStatsService(repository.NewReportStatsRepository(db))

	// 5. Analysis pipeline.
	processor = pipeline.NewProcessor(reportService, classificationService, duplicateService,
		relationshipService, routingService, hub, cfg.Duplicate)

	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, rdb, processor)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil {
				log.Errorf("kafka consumer stopped: %v", err)
			}
		}()
	} else {
		close(consumerDone)
	}

	// 6. HTTP.
	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var intakeLimit gin.HandlerFunc
	if cfg.RateLimit.RequestsPerSecond > 0 {
		intakeLimit = middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(handler.Handlers{
		Reports:       handler.NewReportHandler(reportService),
		Reporters:     handler.NewReporterHandler(reporterService),
		Organisations: handler.NewOrganisationHandler(organisationService),
		Routes:        handler.NewRouteHandler(routingService),
		Related:       handler.NewRelatedHandler(relationshipService),
		NLP:           handler.NewNLPHandler(classificationService, duplicateService),
		Analytics:     handler.NewAnalyticsHandler(statsService),
		System:        handler.NewSystemHandler(checks, hub),
	}, intakeLimit)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %s", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
	}

	<-consumerDone
	if inline != nil {
		inline.Wait()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("kafka producer close failed: %v", err)
		}
	}
	log.Info("server stopped")
}
