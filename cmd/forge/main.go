package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"forge/internal/config"
	"forge/internal/llm"
	"forge/internal/logging"
	"forge/internal/memory"
	"forge/internal/perception"
	"forge/internal/store"
)

var (
	// Global flags
	cfgPath string
	dataDir string
	debug   bool
	timeout time.Duration

	// Logger
	logger *zap.Logger

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "forge - personalization memory engine for a scripture-study assistant",
	Long: `forge stores what a user saves (notes, highlights, prayers), counts what
they keep bringing up, and retrieves the slice of it relevant to the
current conversation.

The engine is consumed by an orchestrator through its tool surface; this
CLI exists for operations: inspecting state, running the TTL sweep, and
consolidating sessions by hand.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(resolveConfigPath())
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.Engine.DataDir = dataDir
		}

		zcfg := zap.NewProductionConfig()
		if debug {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		// One id per invocation, for correlating zap output with the
		// category and audit logs.
		logger = logger.With(zap.String("run_id", uuid.NewString()))

		if err := logging.Initialize(cfg.Engine.DataDir); err != nil {
			logger.Warn("Category logging disabled", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// classifyCmd runs the intent classifier on a single message
var classifyCmd = &cobra.Command{
	Use:   "classify [message]",
	Short: "Classify a message and print the derived plan",
	Long: `Runs the two-tier intent classifier (keyword rules, then the completion
model when configured) on a message and prints the IntentResult and the
TaskSpec derived from it as JSON.

Without a completion provider the classifier runs on rules alone; messages
no rule matches degrade to the default intent.

Example:
  forge classify "what does this verse mean?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

// sweepCmd purges expired rows
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Purge expired signals and session notes",
	Long: `Deletes signals whose sighting TTL has elapsed and session notes past
their expiry. The request path never blocks on this; run it from cron,
or with --daemon to keep sweeping on the configured interval.`,
	RunE: runSweep,
}

// consolidateCmd folds a conversation's session notes into the profile
var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Consolidate a conversation's session notes into the user profile",
	Long: `Runs end-of-session consolidation for one conversation: session notes are
merged into the user's global notes (with the completion model
deduplicating when configured) and deleted once the state write succeeds.

Example:
  forge consolidate --user user-42 --conversation conv-7`,
	RunE: runConsolidate,
}

// statsCmd prints row counts
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts for every engine table",
	RunE:  runStats,
}

// vocabCmd prints the closed vocabularies
var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Print the closed vocabulary registry",
	Long: `Prints every closed vocabulary the engine validates against. Values
outside these sets are rejected at the boundary, never stored.`,
	Run: runVocab,
}

var (
	consolidateUser         string
	consolidateConversation string
	sweepDaemon             bool
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default: <data-dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Engine data directory (default: .forge)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	sweepCmd.Flags().BoolVar(&sweepDaemon, "daemon", false, "Keep running, sweeping on the configured interval")

	consolidateCmd.Flags().StringVar(&consolidateUser, "user", "", "User id (required)")
	consolidateCmd.Flags().StringVar(&consolidateConversation, "conversation", "", "Conversation id (required)")
	consolidateCmd.MarkFlagRequired("user")
	consolidateCmd.MarkFlagRequired("conversation")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(vocabCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfigPath prefers --config, then <data-dir>/config.yaml.
func resolveConfigPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	base := dataDir
	if base == "" {
		base = config.DefaultEngineConfig().DataDir
	}
	return filepath.Join(base, "config.yaml")
}

// commandContext returns a context bounded by --timeout that also cancels
// on SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func openStore() (*store.Store, error) {
	return store.New(filepath.Join(cfg.Engine.DataDir, cfg.Engine.DatabaseFile))
}

// newCompletionClient builds the configured completion client, or nil when
// the provider is unavailable. Callers all have a model-free path.
func newCompletionClient() llm.Client {
	client, err := llm.NewClient(cfg.Completion)
	if err != nil {
		logger.Warn("No completion client; continuing without the model", zap.Error(err))
		return nil
	}
	return client
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	message := strings.Join(args, " ")
	logger.Debug("Classifying message", zap.Int("length", len(message)))

	classifier := perception.NewClassifier(newCompletionClient())
	convCtx := perception.Context{IsFirstMessage: true}
	result := classifier.Classify(ctx, message, convCtx)
	spec := perception.BuildTaskSpec(result, message, convCtx)

	out := struct {
		Intent   perception.IntentResult `json:"intent"`
		TaskSpec perception.TaskSpec     `json:"taskSpec"`
	}{result, spec}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	eng := memory.NewEngine(st)
	purged, err := eng.SweepExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	logger.Info("Sweep complete", zap.Int64("purged", purged))
	fmt.Printf("purged %d expired rows\n", purged)

	if !sweepDaemon {
		return nil
	}

	// Daemon mode ignores --timeout; it runs until interrupted.
	dctx, dcancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer dcancel()

	interval := cfg.GetSweepInterval()
	sweeper := memory.NewSweeper(eng, interval)
	sweeper.Start(dctx)
	logger.Info("Sweeping on interval", zap.Duration("interval", interval))
	<-dctx.Done()
	sweeper.Stop()
	return nil
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	logging.WithRequestID(logging.CategoryMemory, consolidateConversation).
		Info("Manual consolidation requested for user %s", consolidateUser)

	consolidator := memory.NewConsolidator(st, newCompletionClient())
	result, err := consolidator.Consolidate(ctx, consolidateUser, consolidateConversation)
	if err != nil {
		return fmt.Errorf("consolidation failed: %w", err)
	}

	logger.Info("Consolidation complete",
		zap.String("user", consolidateUser),
		zap.String("conversation", consolidateConversation),
		zap.Int("merged", result.Merged))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
