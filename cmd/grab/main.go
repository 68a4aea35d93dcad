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

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/grab/internal/config"
	grabhttp "github.com/ligustah/grab/internal/http"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitStorageError     = 5
	ExitValidationFailed = 7
	ExitPartialFailure   = 8
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitf(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return runWith(args, os.Stdin, os.Stdout, os.Stderr)
}

func runWith(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}

	// Anything cobra rejects (unknown command, bad flag) is a usage error.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitInvalidArgs
}

// app holds what the commands share: output streams, the merged
// configuration and the logger.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	flags      config.Config
	noManifest bool

	cfg    config.Config
	logger *log.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "grab",
		Short: "Fetch images concurrently and compare threads, processes and async",
		Long: `grab downloads a list of URLs and stores each one under
<output>/<strategy>/<host>/<filename>, timing every download and the batch.

Output may be a local directory or a bucket URL (file://, s3://, gs://).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVarP(&a.flags.Output, "output", "o", "", "output directory or bucket URL (default \".\")")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (default \"info\")")

	root.AddCommand(
		newFetchCmd(a),
		newValidateCmd(a),
		newDeleteCmd(a),
		newWorkerCmd(a),
	)
	return root
}

// setup merges defaults, the config file, GRAB_* variables and flags, then
// installs the logger in the command context.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(a.configPath)
		if err != nil {
			return &exitError{code: ExitInvalidArgs, err: err}
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return &exitError{code: ExitInvalidArgs, err: err}
	}
	cfg = cfg.Merge(a.flags)
	// Merge skips zero values; an explicit zero on the command line still wins.
	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		cfg.Concurrency = a.flags.Concurrency
	}
	if flags.Changed("retries") {
		cfg.Retry.Attempts = a.flags.Retry.Attempts
	}
	if flags.Changed("timeout") {
		cfg.Timeout = a.flags.Timeout
	}
	if a.noManifest {
		cfg.Manifest = false
	}
	if err := cfg.Validate(); err != nil {
		return &exitError{code: ExitInvalidArgs, err: err}
	}
	a.cfg = cfg

	level, _ := log.ParseLevel(cfg.LogLevel)
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "grab",
	})
	cmd.SetContext(log.WithContext(cmd.Context(), a.logger))
	return nil
}

// httpOptions converts the configuration to client options.
func (a *app) httpOptions() grabhttp.Options {
	opts := grabhttp.DefaultOptions()
	opts.Timeout = a.cfg.Timeout
	opts.RetryAttempts = a.cfg.Retry.Attempts
	opts.RetryBackoff = a.cfg.Retry.Backoff
	opts.RetryMaxBackoff = a.cfg.Retry.MaxBackoff
	opts.MaxSize = a.cfg.MaxSize
	opts.UserAgent = a.cfg.UserAgent
	return opts
}
