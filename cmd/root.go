package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/milhao/internal/config"
	"github.com/abhisek/milhao/internal/game"
	"github.com/abhisek/milhao/internal/genlevel"
	"github.com/abhisek/milhao/internal/llm"
	"github.com/abhisek/milhao/internal/requestlog"
	"github.com/abhisek/milhao/internal/server"
	"github.com/abhisek/milhao/internal/tutor"
)

var rootCmd = &cobra.Command{
	Use:   "milhao",
	Short: "AI trivia game server",
	Long: "Milhão is a trivia game server with an AI tutor: timed levels of " +
		"multiple-choice questions, accumulating prizes, and LLM-generated " +
		"follow-up levels personalized to each attempt.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite request log (overrides MILHAO_DB)")

	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServer(cmd *cobra.Command) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("load game settings: %w", err)
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return fmt.Errorf("resolve request log path: %w", err)
	}
	reqLog, err := requestlog.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open request log: %w", err)
	}
	defer reqLog.Close()

	generator, err := llm.NewGenerator(cmd.Context(), cfg.LLM, reqLog)
	if err != nil {
		return fmt.Errorf("initialize generator: %w", err)
	}

	store := game.NewStore()
	machine := game.NewMachine(store, settings.Questions, settings.CurrencySymbol)
	machine.OnReset = func(s *game.Session) {
		tutor.InitContext(s, settings.TutorPersona, tutor.RetryNote)
	}

	pipeline := genlevel.New(generator, genlevel.Config{
		Quantity:      settings.QuestionQuantity,
		Instructions:  settings.GenerationInstructions,
		KnowledgeBase: settings.VectorStoreID,
	}, logger)

	relay := tutor.NewRelay(generator, tutor.Config{
		Persona:       settings.TutorPersona,
		KnowledgeBase: settings.VectorStoreID,
	}, logger)

	srv := server.New(logger, store, machine, pipeline, relay, settings)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", httpServer.Addr,
			"provider", cfg.LLM.Provider, "questions", len(settings.Questions))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// resolveDBPath returns the request log path using --db flag (highest
// priority), then MILHAO_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, nil
	}
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return requestlog.DefaultDBPath()
}
