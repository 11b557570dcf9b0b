// Taskbotd is the turn orchestrator for the task assistant.
//
// It terminates the HTTP turn API, routes each utterance through the phased
// dialogue policy, and persists sessions in Redis. Classifiers, search and
// extractive QA are consumed as HTTP backends; generative features go
// through an OpenAI-compatible endpoint.
//
// Configuration is loaded from an optional YAML file plus TASKBOT_*
// environment variables. See internal/config for the full surface.
//
// Usage:
//
//	# Start with defaults
//	taskbotd
//
//	# Point at a config file
//	taskbotd -config /etc/taskbotd/config.yaml
//
//	# Configure via environment
//	TASKBOT_SERVER_PORT=9090 TASKBOT_REDIS_ADDR=redis:6379 taskbotd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/config"
	"github.com/fyrsmithlabs/taskbotd/internal/enhance"
	taskhttp "github.com/fyrsmithlabs/taskbotd/internal/http"
	"github.com/fyrsmithlabs/taskbotd/internal/logging"
	"github.com/fyrsmithlabs/taskbotd/internal/policy"
	"github.com/fyrsmithlabs/taskbotd/internal/qa"
	"github.com/fyrsmithlabs/taskbotd/internal/safety"
	"github.com/fyrsmithlabs/taskbotd/internal/services"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  taskbotd           Start the taskbotd daemon\n")
			fmt.Fprintf(os.Stderr, "  taskbotd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("taskbotd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires all dependencies and blocks until the context is cancelled.
//
//  1. Loads and validates configuration
//  2. Initializes the structured logger
//  3. Connects the Redis session store
//  4. Builds the safety checker and optional wordlist watcher
//  5. Builds the classifier, search, joke and QA backends
//  6. Assembles the composed QA aggregator and enrichment manager
//  7. Constructs the phased policy and HTTP server
//  8. Performs graceful shutdown, draining detached enrichment jobs
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting taskbotd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	store, err := session.NewRedisStore(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect session store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("session store close failed", zap.Error(err))
		}
	}()

	checker, stopWatch, err := initSafety(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize safety checker: %w", err)
	}
	if stopWatch != nil {
		defer close(stopWatch)
	}

	classifier := services.NewClassifierClient(cfg.Backends.ClassifierURL, cfg.Backends.CallTimeout)
	searcher := services.NewSearcherClient(cfg.Backends.SearcherURL, cfg.Backends.CallTimeout)
	jokes := services.NewJokeClient(cfg.Backends.JokeURL, cfg.Backends.CallTimeout)

	model, err := services.NewOpenAIModel(cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize language model: %w", err)
	}
	gen := services.NewGenerator(model, cfg.LLM.RatePerSecond, cfg.LLM.Burst, logger)

	composed, err := qa.NewComposed(qa.ComposedConfig{
		Engines: []qa.Engine{
			services.NewTaskQAEngine(cfg.Backends.QAURL, cfg.Backends.CallTimeout),
			services.NewGeneralQAEngine(cfg.Backends.QAURL, cfg.Backends.CallTimeout),
			services.NewLLMEngine(gen),
		},
		Scorer:                classifier,
		Substitutions:         gen,
		Budget:                cfg.QA.Budget,
		SubstitutionThreshold: cfg.QA.SubstitutionThreshold,
		Logger:                logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build qa aggregator: %w", err)
	}

	enricher, err := enhance.NewManager(enhance.Config{
		Leases:    store,
		Enricher:  enhance.NewTaskmapEnricher(gen),
		JobBudget: cfg.Enhance.JobBudget,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build enrichment manager: %w", err)
	}
	defer enricher.Wait()

	pol, err := policy.New(policy.Deps{
		Safety:    checker,
		Domains:   classifier,
		Intents:   classifier,
		Questions: classifier,
		Dangerous: classifier,
		Search:    searcher,
		Jokes:     jokes,
		QA:        composed,
		Chat:      gen,
		Enhance:   enricher,
		Hints:     gen,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build policy: %w", err)
	}

	srv, err := taskhttp.NewServer(store, pol, taskhttp.NewMetrics(nil), logger, &taskhttp.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to build http server: %w", err)
	}

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("turn_endpoint", "/v1/interaction"),
		zap.String("metrics_endpoint", "/metrics"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initSafety builds the checker, loading custom wordlists when configured.
// The returned channel, when non-nil, stops the hot-reload watcher on close.
func initSafety(cfg *config.Config, logger *zap.Logger) (*safety.Checker, chan struct{}, error) {
	checker := safety.NewChecker()
	if cfg.Safety.WordlistDir == "" {
		return checker, nil, nil
	}
	if err := checker.LoadDir(cfg.Safety.WordlistDir); err != nil {
		return nil, nil, fmt.Errorf("load wordlists from %s: %w", cfg.Safety.WordlistDir, err)
	}
	logger.Info("Loaded safety wordlists", zap.String("dir", cfg.Safety.WordlistDir))

	if !cfg.Safety.Watch {
		return checker, nil, nil
	}
	// Watch blocks until stop closes, so it runs detached.
	stop := make(chan struct{})
	go func() {
		if err := checker.Watch(cfg.Safety.WordlistDir, stop, logger); err != nil {
			logger.Warn("wordlist watcher stopped", zap.Error(err))
		}
	}()
	return checker, stop, nil
}
