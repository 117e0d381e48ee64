package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/torosent/crankplan/internal/config"
	"github.com/torosent/crankplan/internal/engine"
	"github.com/torosent/crankplan/internal/httpclient"
	"github.com/torosent/crankplan/internal/metrics"
	"github.com/torosent/crankplan/internal/output"
	"github.com/torosent/crankplan/internal/planfile"
	"github.com/torosent/crankplan/internal/threshold"
	"github.com/torosent/crankplan/internal/tracing"
	"github.com/torosent/crankplan/pkg/plan"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

// errThresholdsFailed marks a run that completed but missed a threshold.
var errThresholdsFailed = errors.New("thresholds failed")

func main() {
	err := newRootCmd(os.Stdout, os.Stderr).Execute()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, config.ErrHelpRequested):
		return 0
	case errors.Is(err, errThresholdsFailed):
		return 2
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "crankplan",
		Short:         "Build and run load-test plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	runCmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Run a test plan and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runPlan(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	config.RegisterFlags(runCmd)

	validateCmd := &cobra.Command{
		Use:   "validate <plan.yaml>",
		Short: "Check a test plan without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args[0])
			if err != nil {
				return err
			}
			return validatePlan(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	config.RegisterFlags(validateCmd)

	root.AddCommand(runCmd, validateCmd)
	return root
}

func loadConfig(cmd *cobra.Command, planPath string) (*config.Config, error) {
	cfg, err := config.NewLoader().Load(cmd.Flags(), planPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)
	if cfg.Dev {
		encCfg = zap.NewDevelopmentEncoderConfig()
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core), nil
}

func validatePlan(cfg *config.Config, stdout, stderr io.Writer) error {
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	b, err := plan.NewBuilder(engine.New(engine.WithLogger(logger)), plan.WithLogger(logger))
	if err != nil {
		return err
	}
	tp, err := planfile.LoadFile(b, cfg.PlanFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: ok (%d top-level elements)\n", cfg.PlanFile, len(tp.Elements()))
	return nil
}

func runPlan(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	provider, err := tracing.Init(ctx, cfg.Tracing, tracing.WithGlobal())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(sctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector()
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithHTTPClient(httpclient.NewClient(cfg.Timeout)),
		engine.WithTracing(provider),
		engine.WithCollector(collector),
	}
	if cfg.Seed != 0 {
		opts = append(opts, engine.WithSeed(cfg.Seed))
	}

	b, err := plan.NewBuilder(engine.New(opts...), plan.WithLogger(logger))
	if err != nil {
		return err
	}
	tp, err := planfile.LoadFile(b, cfg.PlanFile)
	if err != nil {
		return err
	}

	var progress *output.ProgressReporter
	if cfg.Progress && !cfg.JSONOutput {
		progress = output.NewProgressReporter(collector, progressInterval, stderr)
		progress.Start()
	}

	stats, err := tp.Run(ctx)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return err
	}
	res, ok := stats.Result().(*engine.Result)
	if !ok {
		return fmt.Errorf("unexpected result type %T", stats.Result())
	}

	rep := output.Report{
		RunID:       res.ID().String(),
		GeneratedAt: time.Now(),
		Snapshot:    res.Snapshot(),
	}
	if len(thresholds) > 0 {
		rep.Thresholds = threshold.NewEvaluator(thresholds).Evaluate(rep.Snapshot)
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, rep); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, rep)
	}

	if threshold.Failed(rep.Thresholds) {
		return errThresholdsFailed
	}
	return nil
}
