// cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/artifacts"
	"github.com/xkilldash9x/loginprobe/internal/browser/session"
	"github.com/xkilldash9x/loginprobe/internal/config"
	"github.com/xkilldash9x/loginprobe/internal/observability"
	"github.com/xkilldash9x/loginprobe/internal/reporting"
	"github.com/xkilldash9x/loginprobe/internal/suite"
)

// Function variables so tests can run the command without a browser.
var (
	newScope = func(cfg *config.Config, logger *zap.Logger) (suite.Scope, func(context.Context) error) {
		p := session.NewProvider(cfg, logger)
		return suite.ProviderScope(p), p.Shutdown
	}
	artifactFs = afero.NewOsFs
)

type runOptions struct {
	caseFilter string
	format     string
	output     string
	artifacts  string
	headless   bool
}

func newRunCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the login page suite",
		Long: `Run every login page case, each in its own browser session, and write a
report. The exit status is 1 when any case failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = opts.headless
			}
			if opts.format != "" {
				cfg.Report.Format = opts.format
			}
			if opts.output != "" {
				cfg.Report.Output = opts.output
			}
			if cmd.Flags().Changed("artifacts") {
				cfg.Report.ArtifactsDir = opts.artifacts
			}
			return runSuite(cmd.Context(), cfg, opts.caseFilter)
		},
	}

	cmd.Flags().StringVar(&opts.caseFilter, "case", "", "only run cases whose name matches this regular expression")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "report format: junit, json or text (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "report file (default stdout)")
	cmd.Flags().StringVar(&opts.artifacts, "artifacts", "", "directory for failure screenshots; empty disables them")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "force headless mode")
	return cmd
}

func runSuite(ctx context.Context, cfg *config.Config, caseFilter string) error {
	logger := observability.GetLogger()
	runID := uuid.NewString()

	runnerOpts := []suite.RunnerOption{suite.WithRunID(runID)}
	if caseFilter != "" {
		re, err := regexp.Compile(caseFilter)
		if err != nil {
			return fmt.Errorf("invalid --case pattern: %w", err)
		}
		runnerOpts = append(runnerOpts, suite.WithFilter(re))
	}
	if cfg.Report.ArtifactsDir != "" {
		runnerOpts = append(runnerOpts, suite.WithArtifacts(artifacts.New(artifactFs(), cfg.Report.ArtifactsDir, runID)))
	}

	scope, shutdown := newScope(cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(session.Detach(ctx), shutdownTimeout(cfg))
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown incomplete.", zap.Error(err))
		}
	}()

	runner, err := suite.NewRunner(cfg, scope, logger, runnerOpts...)
	if err != nil {
		return err
	}
	if len(runner.Selected()) == 0 {
		return fmt.Errorf("no case matches %q", caseFilter)
	}

	reporter, err := reporting.New(cfg.Report.Format, cfg.Report.Output)
	if err != nil {
		return err
	}

	sum := runner.Run(ctx)
	writeErr := reporter.Write(sum)
	closeErr := reporter.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return closeErr
	}

	if !sum.OK() {
		return fmt.Errorf("%w: %d failed, %d errors out of %d cases",
			ErrCasesFailed, sum.Count(suite.StatusFailed), sum.Count(suite.StatusError), len(sum.Results))
	}
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Timeouts.Shutdown > 0 {
		return cfg.Timeouts.Shutdown
	}
	return 15 * time.Second
}
