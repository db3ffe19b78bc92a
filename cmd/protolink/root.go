package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/protolink/common"
	"github.com/example/protolink/runtime"
	"github.com/example/protolink/testrunner"
)

const (
	envMode     = "PROTOLINK_MODE"
	envLogLevel = "PROTOLINK_LOG_LEVEL"
)

type runOptions struct {
	filter  string
	limit   int
	verbose bool
	mode    modeValue
	envFile string
	timeout time.Duration
}

func newRootCommand(ctx context.Context, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "protolink",
		Short:        "Run call-site binding and prototype delegation scenarios",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRunCommand(ctx), newVersionCommand(version))
	return rootCmd
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "protolink version %s\n", version)
		},
	}
}

func newRunCommand(ctx context.Context) *cobra.Command {
	opts := &runOptions{}
	runCmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Run the YAML scenarios found under dir (default: current directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(ctx, cmd, opts, args)
		},
	}
	addRunFlags(runCmd.Flags(), opts)
	return runCmd
}

func addRunFlags(flags *pflag.FlagSet, opts *runOptions) {
	flags.StringVar(&opts.filter, "filter", "", "only run scenarios whose path or name contains this")
	flags.IntVar(&opts.limit, "limit", 0, "maximum number of scenarios to run (0 = all)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.Var(&opts.mode, "mode", "force every scenario into this mode (strict or permissive)")
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file supplying "+envMode+" and "+envLogLevel)
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Second, "per-scenario timeout")
}

// modeValue is a pflag.Value that remembers whether it was set.
type modeValue struct {
	mode runtime.Mode
	set  bool
}

func (m *modeValue) String() string {
	if !m.set {
		return ""
	}
	return m.mode.String()
}

func (m *modeValue) Set(s string) error {
	if err := m.mode.UnmarshalText([]byte(s)); err != nil {
		return err
	}
	m.set = true
	return nil
}

func (m *modeValue) Type() string { return "mode" }

func runScenarios(ctx context.Context, cmd *cobra.Command, opts *runOptions, args []string) error {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return errors.Wrapf(err, "loading %s", opts.envFile)
		}
	}

	logger := log.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetFormatter(&log.TextFormatter{DisableColors: !colorEnabled(cmd.ErrOrStderr())})
	level, err := logLevel(opts.verbose)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	ctx = common.WithLogger(ctx, logger)

	cfg := testrunner.Config{
		Dir:     ".",
		Filter:  opts.filter,
		Limit:   opts.limit,
		Verbose: opts.verbose,
		Timeout: opts.timeout,
	}
	if len(args) > 0 {
		cfg.Dir = args[0]
	}
	if !opts.mode.set {
		if name := os.Getenv(envMode); name != "" {
			if err := opts.mode.Set(name); err != nil {
				return errors.Wrap(err, envMode)
			}
		}
	}
	if opts.mode.set {
		mode := opts.mode.mode
		cfg.Mode = &mode
	}

	results, summary, err := testrunner.Run(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colored := colorEnabled(out)
	if !opts.verbose {
		for _, r := range results {
			msg := ""
			if r.Message != "" {
				msg = " " + r.Message
			}
			fmt.Fprintf(out, "%s %s: %s%s\n", resultTag(r.Result, colored), r.Path, r.Name, msg)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Summary ===")
	fmt.Fprintf(out, "Total:   %d\n", summary.Total)
	fmt.Fprintf(out, "Passed:  %d\n", summary.Passed)
	fmt.Fprintf(out, "Failed:  %d\n", summary.Failed)
	fmt.Fprintf(out, "Skipped: %d\n", summary.Skipped)
	fmt.Fprintf(out, "Errors:  %d\n", summary.Errors)
	fmt.Fprintf(out, "Elapsed: %s\n", summary.Elapsed)

	if !summary.Ok() {
		return errors.Errorf("%d failed, %d errored", summary.Failed, summary.Errors)
	}
	return nil
}

// logLevel picks debug for --verbose, else PROTOLINK_LOG_LEVEL, else info.
func logLevel(verbose bool) (log.Level, error) {
	if verbose {
		return log.DebugLevel, nil
	}
	name := os.Getenv(envLogLevel)
	if name == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		return 0, errors.Wrap(err, envLogLevel)
	}
	return level, nil
}
