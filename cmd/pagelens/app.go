package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/c360studio/pagelens/config"
	"github.com/c360studio/pagelens/encoder"
	"github.com/c360studio/pagelens/ingest"
	"github.com/c360studio/pagelens/llm"
	"github.com/c360studio/pagelens/model"
	"github.com/c360studio/pagelens/pipeline"
	"github.com/c360studio/pagelens/projector"
	"github.com/c360studio/pagelens/retrieval"
	"github.com/c360studio/pagelens/search"
	"github.com/c360studio/pagelens/server"
	"github.com/c360studio/pagelens/store"
	"github.com/c360studio/pagelens/synthesis"
	"github.com/c360studio/pagelens/vision"
)

// setup configures logging and loads the layered configuration.
func setup(configPath, logLevel string) (*config.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid configuration: %w", err)
		}
	} else {
		cfg, err = config.NewLoader(logger).Load()
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
	}

	return cfg, logger, nil
}

// loadRegistry returns the model registry, from file when configured.
func loadRegistry(cfg *config.Config) (*model.Registry, error) {
	registry := model.NewDefaultRegistry()
	if cfg.Models.RegistryPath == "" {
		return registry, nil
	}

	data, err := os.ReadFile(cfg.Models.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("read model registry: %w", err)
	}
	if err := json.Unmarshal(data, registry); err != nil {
		return nil, fmt.Errorf("parse model registry: %w", err)
	}
	return registry, nil
}

// buildPipeline wires the full question-answering stack. The returned
// cleanup closes the NATS connection.
func buildPipeline(ctx context.Context, cfg *config.Config, registry *model.Registry, logger *slog.Logger) (*pipeline.Pipeline, func(), error) {
	nc, err := nats.Connect(cfg.Store.NATSURL, nats.Name(appName))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	cleanup := func() { nc.Close() }

	objects, err := store.NewNATSStore(ctx, nc, cfg.Store.Config)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open object store: %w", err)
	}

	enc := encoder.NewClient(cfg.Encoder)
	proj := projector.New(objects, enc, projector.WithLogger(logger))
	searcher := search.NewClient(cfg.Search, search.WithLogger(logger))

	selector, err := retrieval.NewSelector(cfg.Selection)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("build selector: %w", err)
	}

	completer := llm.NewClient(registry)
	drafter := synthesis.NewDrafter(completer, objects, cfg.Synthesis, logger)
	validator := vision.NewValidator(completer, objects, cfg.Vision, vision.WithLogger(logger))
	synthesizer := synthesis.NewSynthesizer(completer, cfg.Synthesis, logger)

	p := pipeline.New(proj, searcher, selector, drafter, validator, synthesizer,
		cfg.Pipeline, pipeline.WithLogger(logger))
	return p, cleanup, nil
}

func askCmd(configPath, logLevel *string) *cobra.Command {
	var maxChunks, maxImages int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, cleanup, err := buildPipeline(ctx, cfg, registry, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			answer, err := p.AnswerWith(ctx, args[0], pipeline.AskOptions{
				MaxChunks: maxChunks,
				MaxImages: maxImages,
			})
			if err != nil {
				return err
			}

			fmt.Println(answer.Text)
			logger.Info("Question answered",
				"elapsed", answer.Elapsed,
				"search_results", answer.SearchResults,
				"evidence", answer.EvidenceCount,
				"citations", answer.CitationCount,
				"critiques", answer.CritiqueSuccesses)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxChunks, "max-chunks", 0, "cap the evidence set for this question")
	cmd.Flags().IntVar(&maxImages, "max-images", 0, "cap how many images are critiqued")
	return cmd
}

func serveCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, cleanup, err := buildPipeline(ctx, cfg, registry, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			if cfg.Models.RegistryPath != "" {
				watcher := server.NewRegistryWatcher(cfg.Models.RegistryPath, registry, logger)
				go func() {
					if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
						logger.Warn("Registry watcher stopped", "error", err)
					}
				}()
			}

			srv := &http.Server{
				Addr:    cfg.Server.Addr,
				Handler: server.NewServer(p, logger),
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info("HTTP server listening", "addr", cfg.Server.Addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func ingestCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [glob]",
		Short: "Ingest PDF documents matching a glob into the search index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ing := ingest.NewIngester(cfg.Ingest, logger)
			pages, err := ing.Run(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d pages\n", pages)
			return nil
		},
	}
}
