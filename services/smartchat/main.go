// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/assistant"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/connect"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/coordinator"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/handlers"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/observability"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/profiler"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/prompts"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/routes"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/session"
)

// persistence is the combined storage surface the service wires; both
// the weaviate Store and the in-memory lightweight store satisfy it.
type persistence interface {
	assistant.LogSink
	coordinator.SessionSink
	profiler.ProfileStore
	handlers.SessionAdminStore
}

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "smartchat-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("smartchat-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// searchAreaFromEnv starts from the product default search area and
// applies any SMARTCHAT_SEARCH_* overrides.
func searchAreaFromEnv() connect.SearchArea {
	area := connect.DefaultSearchArea()
	if v := os.Getenv("SMARTCHAT_SEARCH_REGION"); v != "" {
		area.Region = v
	}
	if lat, err := strconv.ParseFloat(os.Getenv("SMARTCHAT_SEARCH_LAT"), 64); err == nil {
		area.Lat = lat
	}
	if lng, err := strconv.ParseFloat(os.Getenv("SMARTCHAT_SEARCH_LNG"), 64); err == nil {
		area.Lng = lng
	}
	return area
}

// newWeaviateStore connects to weaviate when WEAVIATE_SERVICE_URL is
// set and valid; otherwise returns nil for lightweight mode.
func newWeaviateStore(ctx context.Context) *datatypes.Store {
	weaviateURL := strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' ")
	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("WEAVIATE_SERVICE_URL not set. Running in lightweight mode (in-memory persistence).")
		return nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running in lightweight mode.",
			"url", weaviateURL, "error", err)
		return nil
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client, running in lightweight mode", "error", err)
		return nil
	}

	store := datatypes.NewStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to ensure Weaviate schema, running in lightweight mode", "error", err)
		return nil
	}
	return store
}

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	port := os.Getenv("SMARTCHAT_PORT")
	if port == "" {
		port = "12310"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store persistence
	if ws := newWeaviateStore(ctx); ws != nil {
		store = ws
	} else {
		store = datatypes.NewMemoryStore()
	}

	log.Println("Configuring the completion gateway")
	gateway, err := llm.NewClientFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize the completion gateway: %v", err)
	}

	library, err := prompts.Load(os.Getenv("SMARTCHAT_PROMPTS_FILE"))
	if err != nil {
		log.Fatalf("Failed to load prompt configuration: %v", err)
	}

	registry := session.NewRegistry()
	metrics := observability.NewChatMetrics(registry.Len)
	sweeper := session.NewSweeper(registry, session.DefaultSweeperConfig())

	backend := os.Getenv("SMARTCHAT_LLM_BACKEND")
	if backend == "" {
		backend = "openai"
	}
	gateway = observability.InstrumentGateway(gateway, backend, metrics)

	profiles := profiler.New(gateway, store)
	graph := connect.NewGraphClient(os.Getenv("GNN_API_BASE_URL"))
	search := connect.NewWebSearch(os.Getenv("RAPIDAPI_HOST"), os.Getenv("RAPIDAPI_KEY"))
	recommender := connect.NewRecommender(graph, search, gateway, searchAreaFromEnv())

	coord, err := coordinator.New(coordinator.Config{
		Registry:    registry,
		Gateway:     gateway,
		Profiles:    profiles,
		Recommender: recommender,
		Library:     library,
		LogSink:     store,
		SessionSink: store,
		Metrics:     metrics,
	})
	if err != nil {
		log.Fatalf("Failed to initialize the coordinator: %v", err)
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("smartchat-service"))
	routes.SetupRoutes(router, coord, store, registry, os.Getenv("SMARTCHAT_AUTH_TOKEN"))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Println("Starting the smartchat server on port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = sweeper.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
	slog.Info("Server stopped cleanly")
}
