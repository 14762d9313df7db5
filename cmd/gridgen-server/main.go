package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/signalsfoundry/gridgen/core"
	"github.com/signalsfoundry/gridgen/internal/api"
	"github.com/signalsfoundry/gridgen/internal/generator"
	"github.com/signalsfoundry/gridgen/internal/llm"
	"github.com/signalsfoundry/gridgen/internal/logging"
	"github.com/signalsfoundry/gridgen/internal/observability"
	"github.com/signalsfoundry/gridgen/internal/pipeline"
	"github.com/signalsfoundry/gridgen/internal/retrieval"
	"github.com/signalsfoundry/gridgen/internal/solver"
	"github.com/signalsfoundry/gridgen/library"
)

func main() {
	httpAddr := flag.String("http-addr", ":8080", "TCP address the HTTP API listens on")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("GRIDGEN_POSTGRES_DSN"), "PostgreSQL DSN for the scenario library; empty selects the in-memory store")
	redisAddr := flag.String("redis-addr", os.Getenv("GRIDGEN_REDIS_ADDR"), "Redis address for the context retrieval source; empty uses the scenario library")
	generatorKind := flag.String("generator", "synthetic", "Scenario generator: synthetic | llm")
	llmModel := flag.String("llm-model", "anthropic:claude-sonnet-4-20250514", "provider:model for the llm generator")
	demoValidation := flag.Bool("demo-validation", false, "Skip physics rules and report every scenario as physically valid")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	collector, err := observability.NewPipelineCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	store, closeStore, err := openStore(ctx, *postgresDSN, collector, log)
	if err != nil {
		log.Error(ctx, "failed to open scenario library", logging.Err(err))
		os.Exit(1)
	}
	defer closeStore()

	retriever := buildRetriever(ctx, *redisAddr, store, log)

	gen, err := buildGenerator(*generatorKind, *llmModel)
	if err != nil {
		log.Error(ctx, "failed to build generator", logging.Err(err))
		os.Exit(1)
	}

	var physics core.PhysicsChecker = &core.RuleBasedPhysics{}
	if *demoValidation {
		log.Warn(ctx, "demo validation enabled; physics rules are bypassed")
		physics = core.AlwaysValidPhysics{}
	}

	orch, err := pipeline.NewOrchestrator(pipeline.Config{
		Store:     store,
		Retriever: retriever,
		Generator: gen,
		Physics:   physics,
		Simulator: solver.NewEngine(),
		Collector: collector,
		Logger:    log,
	})
	if err != nil {
		log.Error(ctx, "failed to build pipeline", logging.Err(err))
		os.Exit(1)
	}

	server := api.NewServer(orch, store, collector, log)
	srv := &http.Server{
		Addr:    *httpAddr,
		Handler: server.Router(),
	}

	log.Info(ctx, "starting gridgen server",
		logging.String("addr", *httpAddr),
		logging.String("generator", *generatorKind),
	)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http server exited", logging.Err(err))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down gridgen server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, dsn string, collector *observability.PipelineCollector, log logging.Logger) (library.Store, func(), error) {
	if dsn == "" {
		lib := library.New(library.WithMetricsRecorder(collector))
		return lib, func() {}, nil
	}

	pg, err := library.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	log.Info(ctx, "using postgres scenario library")
	return pg, func() { _ = pg.Close() }, nil
}

func buildRetriever(ctx context.Context, redisAddr string, store library.Store, log logging.Logger) *retrieval.Retriever {
	if redisAddr == "" {
		return retrieval.New(retrieval.StoreSource{Store: store})
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	log.Info(ctx, "using redis retrieval source", logging.String("addr", redisAddr))
	return retrieval.New(retrieval.NewRedisSource(client))
}

func buildGenerator(kind, llmModel string) (generator.Generator, error) {
	switch kind {
	case "llm":
		provider, err := llm.NewProvider(llmModel)
		if err != nil {
			return nil, err
		}
		return generator.NewLLMGenerator(provider), nil
	default:
		return generator.NewSyntheticGenerator(), nil
	}
}
