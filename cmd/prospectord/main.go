// prospectord is the pipeline process: it loads configuration, wires the
// LLM Gateway, Search & Scrape Adapter, RAG Context Store, Persistence
// Sidecar, and Pipeline Orchestrator, and serves the read-only stage
// registry/health HTTP surface (SPEC_FULL.md §4.C13). Job submission is out
// of scope (spec.md §1 excludes "the CLI/chat front-end") — orchestrator.Run
// is a library entry point, called by an embedding caller, not by this
// binary directly.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nellia/prospectord/pkg/api"
	"github.com/nellia/prospectord/pkg/cleanup"
	"github.com/nellia/prospectord/pkg/config"
	"github.com/nellia/prospectord/pkg/dag"
	"github.com/nellia/prospectord/pkg/jobstore"
	"github.com/nellia/prospectord/pkg/llmclient"
	"github.com/nellia/prospectord/pkg/llmgateway"
	"github.com/nellia/prospectord/pkg/orchestrator"
	"github.com/nellia/prospectord/pkg/persistence"
	"github.com/nellia/prospectord/pkg/persistence/memstore"
	"github.com/nellia/prospectord/pkg/ragstore"
	"github.com/nellia/prospectord/pkg/stage"
	_ "github.com/nellia/prospectord/pkg/stage/stages"
	"github.com/nellia/prospectord/pkg/vectorindex"
	"github.com/nellia/prospectord/pkg/webclient"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	cfgPath := getEnv("PROSPECTORD_CONFIG", filepath.Join(*configDir, "prospectord.yaml"))
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfgPath = ""
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("prospectord exited with error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	llm, err := llmclient.New(cfg.LLMServiceAddr)
	if err != nil {
		return err
	}
	defer llm.Close()
	log.Printf("connected to LLM service at %s", cfg.LLMServiceAddr)

	gw := llmgateway.New(llm)
	gwOpts := llmgateway.Options{
		MaxRetries: cfg.MaxRetries,
		RetryDelay: time.Duration(cfg.RetryDelaySeconds * float64(time.Second)),
	}

	web := webclient.New(webclient.Options{
		SearchAPIAddr: cfg.SearchAPIAddr,
		SearchTimeout: cfg.SearchCallTimeout,
		ScrapeTimeout: cfg.ScrapeCallTimeout,
		MaxCharacters: cfg.ScrapeMaxCharacters,
	})

	vecIndex, err := vectorindex.New(cfg.VectorIndexAddr)
	if err != nil {
		log.Printf("warning: vector index unavailable, RAG store will degrade to keyword overlap: %v", err)
	} else if vecIndex != nil {
		log.Printf("connected to vector index at %s", cfg.VectorIndexAddr)
	}
	rag := ragstore.New(vecIndex, llm)

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() }); ok {
		defer closer.Close()
	}

	if purger, ok := store.(cleanup.JobPurger); ok {
		retention := cleanup.NewService(cfg.JobRetention, purger)
		retention.Start(ctx)
		defer retention.Stop()
	}

	runner := stage.NewRunner(gw, gwOpts)
	dagWorker := dag.NewExecutor(runner, rag)
	legacyWorker := orchestrator.NewLegacyWorker(runner)

	orch := orchestrator.New(orchestrator.Deps{
		Gateway:      gw,
		GatewayOpts:  gwOpts,
		Web:          web,
		RAG:          rag,
		Store:        store,
		DAGWorker:    dagWorker,
		LegacyWorker: legacyWorker,
	}, orchestrator.Config{
		Concurrency:          cfg.LeadWorkerConcurrency,
		EventChannelCapacity: cfg.EventChannelCapacity,
		MaxLeadsToGenerate:   cfg.SearchMaxResultsPerQuery,
	})
	_ = orch // wired for embedding callers; this binary only serves introspection/health

	httpPort := getEnv("HTTP_PORT", "8080")
	server := api.NewServer(store)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		log.Printf("health check available at http://localhost:%s/health", httpPort)
		if err := server.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (persistence.Store, error) {
	if cfg.PersistenceDSN == "" {
		log.Printf("no persistence DSN configured, using in-memory job store")
		return memstore.New(), nil
	}
	store, err := jobstore.New(ctx, cfg.PersistenceDSN)
	if err != nil {
		return nil, err
	}
	log.Printf("connected to Postgres job store")
	return store, nil
}
