package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ligustah/grab/internal/config"
	"github.com/ligustah/grab/internal/dispatcher"
	"github.com/ligustah/grab/internal/fetcher"
	"github.com/ligustah/grab/internal/progress"
	"github.com/ligustah/grab/internal/store"
)

// defaultURLs are fetched when no URL is given anywhere.
var defaultURLs = []string{
	"https://i.imgur.com/vfiefI0.jpeg",
	"https://i.imgur.com/qcoE5I9.png",
	"https://i.imgur.com/VTWTeCF.png",
	"https://onrockwave.com/wp-content/uploads/2022/04/orw_071-1-350x250.jpg",
	"https://cloud4box.com/wp-content/uploads/python-300x161.jpg",
}

type fetchFlags struct {
	urlsFile string
	maxSize  string
}

func newFetchCmd(a *app) *cobra.Command {
	var ff fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch [url...]",
		Short: "Download URLs with the chosen strategy",
		Long: `Download every URL and store it under <output>/<strategy>/<host>/<filename>.

URLs come from the arguments, --urls-file, the config file or GRAB_URLS.
Without any, a built-in set of sample images is fetched.

--strategy all runs threads, processes and async one after another.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if ff.maxSize == "" {
				return nil
			}
			size, err := progress.ParseBytes(ff.maxSize)
			if err != nil {
				return &exitError{code: ExitInvalidArgs, err: fmt.Errorf("--max-size: %w", err)}
			}
			a.cfg.MaxSize = size
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd, args, ff)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&a.flags.Strategy, "strategy", "s", "", "threads, processes, async or all (default \"threads\")")
	f.IntVarP(&a.flags.Concurrency, "concurrency", "c", 0, "maximum in-flight downloads, 0 for unbounded")
	f.DurationVar(&a.flags.Timeout, "timeout", 0, "per-request timeout, 0 for none (default 30s)")
	f.IntVar(&a.flags.Retry.Attempts, "retries", 0, "retries after a transport error or 5xx response")
	f.StringVar(&ff.maxSize, "max-size", "", "reject payloads larger than this (e.g. 10MiB)")
	f.StringVar(&a.flags.UserAgent, "user-agent", "", "User-Agent header")
	f.StringVar(&ff.urlsFile, "urls-file", "", "file with one URL per line")
	f.BoolVar(&a.flags.Progress, "progress", false, "show a progress line")
	f.BoolVar(&a.noManifest, "no-manifest", false, "do not write <strategy>/manifest.json")

	return cmd
}

func (a *app) runFetch(cmd *cobra.Command, args []string, ff fetchFlags) error {
	ctx := cmd.Context()

	urls := a.cfg.URLs
	if ff.urlsFile != "" {
		fromFile, err := readURLsFile(ff.urlsFile)
		if err != nil {
			return &exitError{code: ExitInvalidArgs, err: err}
		}
		urls = fromFile
	}
	if len(args) > 0 {
		urls = args
	}
	if len(urls) == 0 {
		a.logger.Info("No URLs given, fetching sample images", "count", len(defaultURLs))
		urls = defaultURLs
	}

	strategies, err := parseStrategies(a.cfg.Strategy)
	if err != nil {
		return &exitError{code: ExitInvalidArgs, err: err}
	}

	st, err := store.Open(ctx, a.cfg.Output)
	if err != nil {
		return &exitError{code: ExitStorageError, err: err}
	}
	defer st.Close()

	opts := dispatcher.Options{
		Store:         st,
		HTTPOptions:   a.httpOptions(),
		Concurrency:   a.cfg.Concurrency,
		WriteManifest: a.cfg.Manifest,
		Logger:        a.logger,
	}
	if a.cfg.Progress {
		opts.ProgressOutput = a.stderr
	}
	d, err := dispatcher.New(opts)
	if err != nil {
		return &exitError{code: ExitInvalidArgs, err: err}
	}

	var batches []*dispatcher.Batch
	for _, s := range strategies {
		batch, err := d.RunBatch(ctx, urls, s)
		if batch != nil {
			batches = append(batches, batch)
		}
		if err != nil {
			printSummary(a.stdout, batches)
			if fetcher.IsConfigError(err) {
				return &exitError{code: ExitInvalidArgs, err: err}
			}
			return &exitError{code: ExitStorageError, err: err}
		}
	}

	printSummary(a.stdout, batches)

	for _, b := range batches {
		if b.Failed() > 0 {
			return &exitError{code: ExitPartialFailure}
		}
	}
	return nil
}

// parseStrategies expands "all" to every strategy.
func parseStrategies(name string) ([]dispatcher.Strategy, error) {
	if strings.EqualFold(name, config.StrategyAll) {
		return dispatcher.Strategies, nil
	}
	s, err := dispatcher.ParseStrategy(name)
	if err != nil {
		return nil, err
	}
	return []dispatcher.Strategy{s}, nil
}

// readURLsFile reads one URL per line, skipping blank lines and # comments.
func readURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open urls file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls file: %w", err)
	}
	return urls, nil
}

// printSummary writes one block per batch: every task with its time, then
// the batch total.
func printSummary(w io.Writer, batches []*dispatcher.Batch) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, b := range batches {
		fmt.Fprintf(tw, "[%s] batch %s\n", b.Strategy, b.ID)
		for _, r := range b.Results {
			if r.Err != nil {
				fmt.Fprintf(tw, "  FAIL\t%s\t%.2fs\t%s error\n", r.Task.URL, r.ElapsedSeconds(), r.Kind())
				continue
			}
			fmt.Fprintf(tw, "  OK\t%s\t%.2fs\t%s\n", r.Task.URL, r.ElapsedSeconds(), progress.FormatBytes(r.Bytes))
		}
		fmt.Fprintf(tw, "  total\t%d ok, %d failed\t%.2fs\t%s\n",
			b.Succeeded(), b.Failed(), b.TotalSeconds(), progress.FormatBytes(b.Bytes()))
	}
	tw.Flush()
}
