package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wpietrzak/kadrio/internal/ai"
	"github.com/wpietrzak/kadrio/internal/chat"
	"github.com/wpietrzak/kadrio/internal/config"
	"github.com/wpietrzak/kadrio/internal/db"
	"github.com/wpietrzak/kadrio/internal/knowledge"
	"github.com/wpietrzak/kadrio/internal/metrics"
	"github.com/wpietrzak/kadrio/internal/prompt"
	"github.com/wpietrzak/kadrio/internal/ratelimit"
	"github.com/wpietrzak/kadrio/internal/server"
	"github.com/wpietrzak/kadrio/internal/store"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Kadrio API server",
		Long:  "Starts the HTTP API: chat endpoint, sessions resource, admin mode switch, and operational endpoints. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "kadrio.yaml", "path to Kadrio config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	st, err := store.New(gormDB)
	if err != nil {
		return err
	}
	kn := knowledge.NewStore(cfg.Knowledge)
	limiter := ratelimit.New(time.Duration(cfg.RateLimit.WindowSeconds)*time.Second, cfg.RateLimit.MaxRequests)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var provider ai.Provider
	source := ai.SourceFallback
	if cfg.AI.APIKey != "" {
		gem, err := ai.NewGemini(ctx, ai.GeminiOpts{
			APIKey:          cfg.AI.APIKey,
			Model:           cfg.AI.Model,
			Temperature:     cfg.AI.Temperature,
			MaxOutputTokens: int32(cfg.AI.MaxOutputTokens),
		})
		if err != nil {
			return fmt.Errorf("create gemini provider: %w", err)
		}
		defer gem.Close()
		provider = gem
		source = ai.SourceForModel(gem.Model())
	} else {
		log.Printf("serve: GEMINI_API_KEY not set, serving canned fallback answers only")
	}

	client := ai.NewClient(ai.ClientOpts{
		Provider: provider,
		Source:   source,
		Timeout:  time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	})
	builder := prompt.NewBuilder(st, kn, cfg.Chat.HistoryPairs)
	orch, err := chat.New(chat.Opts{Store: st, Builder: builder, Client: client})
	if err != nil {
		return err
	}

	return server.Start(ctx, server.StartOpts{
		Config:       cfg,
		Store:        st,
		Orchestrator: orch,
		Knowledge:    kn,
		Limiter:      limiter,
		Metrics:      metrics.NewCollector(),
		Version:      Version,
		Out:          cmd.OutOrStdout(),
	})
}
