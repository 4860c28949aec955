// Command agentd serves the seller-assistant chat endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soukly/agentcore/agent"
	"github.com/soukly/agentcore/config"
	"github.com/soukly/agentcore/flows"
	"github.com/soukly/agentcore/llm"
	llmanthropic "github.com/soukly/agentcore/llm/anthropic"
	"github.com/soukly/agentcore/memory"
	"github.com/soukly/agentcore/memory/embedder/cached"
	"github.com/soukly/agentcore/memory/embedder/mock"
	sqlitestore "github.com/soukly/agentcore/memory/factstore/sqlite"
	chromemindex "github.com/soukly/agentcore/memory/index/chromem"
	"github.com/soukly/agentcore/server"
	"github.com/soukly/agentcore/tools"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "agentd",
		Short: "Seller assistant agent daemon",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	root.AddCommand(serve)
	return root
}

func runServe(ctx context.Context, cfg config.Config) error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	store, err := sqlitestore.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open fact store: %w", err)
	}
	defer store.Close()

	index, err := chromemindex.New()
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	defer index.Close()

	embedder, err := cached.New(mock.New(cfg.Embedding.Dimensions), cfg.Embedding.CacheBytes)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}
	defer embedder.Close()

	mem := memory.NewManager(store, index, embedder,
		memory.WithWeights(memory.Weights{
			Alpha: cfg.Memory.Alpha,
			Gamma: cfg.Memory.Gamma,
			Beta:  cfg.Memory.Beta,
		}),
		memory.WithDeltas(cfg.Memory.ReinforceDelta, cfg.Memory.ContradictDelta),
		memory.WithLogger(log),
	)

	catalog := tools.NewMemCatalog()
	registry := tools.NewRegistry()
	for _, t := range tools.SellerTools(catalog) {
		registry.Register(t)
	}
	dispatcher := tools.NewDispatcher(registry, log)

	api := anthropic.NewClient()
	var client llm.Client = llmanthropic.New(&api, llmanthropic.Config{Model: cfg.Model})

	runner := agent.NewRunner(client, mem, dispatcher, registry,
		agent.WithSummaryStore(store),
		agent.WithLogger(log.Named("agent")),
	)

	buffers := memory.NewBufferSet(cfg.BufferSize)
	flowReg := flows.NewRegistry(cfg.FlowTTL.Std())
	extractor := llm.NewExtractor(client)

	srv := server.New(server.Config{
		JWTSecret:        cfg.JWTSecret,
		SummaryThreshold: cfg.SummaryThreshold,
	}, runner, mem, buffers, flowReg, dispatcher, extractor, store, client, log)

	mux := http.NewServeMux()
	mux.Handle("/ws/chat", srv.Handler())
	httpSrv := &http.Server{Addr: cfg.Addr, Handler: mux}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 1m", func() {
		if n := flowReg.Sweep(); n > 0 {
			log.Info("expired flow sessions removed", zap.Int("count", n))
		}
	}); err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
