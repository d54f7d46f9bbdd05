// Package cli defines the cobra commands for the gdsim terminal simulator.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/speakup-gd/internal/config"
	"github.com/ashureev/speakup-gd/internal/discussion"
	"github.com/ashureev/speakup-gd/internal/evaluation"
	"github.com/ashureev/speakup-gd/internal/llm"
	"github.com/ashureev/speakup-gd/internal/store"
)

// localUserID owns results recorded from the terminal.
const localUserID = "local"

var (
	verbose bool
	version = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "gdsim",
	Short: "Practice group discussions against AI participants",
	Long: `gdsim runs a timed group discussion in the terminal. Three AI
participants take turns with you, hand the floor back and forth, and
score your performance when the discussion ends.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log orchestration decisions to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
}

// app bundles what a command needs from the environment configuration.
type app struct {
	cfg  *config.Config
	svc  *discussion.Service
	repo store.ResultRepository
}

func newApp(ctx context.Context, seed int64) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	participants, err := config.LoadParticipants(cfg.Discussion.PersonasFile)
	if err != nil {
		return nil, err
	}
	client, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	repo, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}

	if seed == 0 {
		seed = cfg.Discussion.RandomSeed
	}
	logger := slog.Default()
	svc := discussion.NewService(discussion.Config{
		Participants:    participants,
		DefaultDuration: cfg.Discussion.DefaultDuration,
		EndWait:         cfg.Discussion.EndWait,
		BotTimeout:      cfg.LLM.BotTimeout,
		ClassifyTimeout: cfg.LLM.ClassifyTimeout,
	}, client, evaluation.New(client, cfg.LLM.EvalTimeout, logger), discussion.NewRand(seed), logger)
	svc.SetRecorder(repo)

	return &app{cfg: cfg, svc: svc, repo: repo}, nil
}
