package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/toejough/decoreg"
	"github.com/toejough/decoreg/internal/ctxlog"
)

// unexported constants.
const (
	sourcePerm = 0o644
)

// unexported variables.
var (
	errUnknownReportFormat = errors.New("unknown report format")
)

// fileResult is the outcome of running the pass over one file.
type fileResult struct {
	path    string
	output  []byte
	changed bool
	report  decoreg.Report
	err     error
}

type transformOptions struct {
	write  bool
	stdout bool
	check  bool
	report string
}

func newTransformCmd(a *app) *cobra.Command {
	var opts transformOptions

	cmd := &cobra.Command{
		Use:   "transform [paths...]",
		Short: "Insert registration calls into JavaScript files",
		Long: `transform runs the registration pass over the given files and directories (default: the
current directory). Directories are searched for .js, .mjs and .jsx files matching the
config's include and exclude globs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transform(cmd.Context(), args, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.write, "write", true, "rewrite changed files in place")
	flags.BoolVar(&opts.stdout, "stdout", false, "print every result instead of writing files")
	flags.BoolVar(&opts.check, "check", false, "only list files that would change, failing if there are any")
	flags.StringVar(&opts.report, "report", "", "print a report of every file (json)")
	cmd.MarkFlagsMutuallyExclusive("stdout", "check")
	cmd.MarkFlagsMutuallyExclusive("stdout", "report")

	return cmd
}

// process runs the pass over files in parallel. Per-file failures are recorded in the results;
// the returned error is only set when ctx ends early.
func (a *app) process(ctx context.Context, files []string, cache *diskCache) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(1, a.v.GetInt("jobs")))

	for i, path := range files {
		group.Go(func() error {
			err := ctx.Err()
			if err != nil {
				return err
			}

			results[i] = a.processFile(ctx, path, cache)

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return results, fmt.Errorf("processing files: %w", err)
	}

	return results, nil
}

func (a *app) processFile(ctx context.Context, path string, cache *diskCache) fileResult {
	log := ctxlog.FromContext(ctx)

	src, err := a.fileSys.ReadFile(path)
	if err != nil {
		return fileResult{path: path, err: err}
	}

	signature := CacheSignature(a.pass.Signature(), src)

	if entry, ok := cache.get(path); ok && entry.Signature == signature {
		log.Debug("cache hit", "file", path)

		output := src
		if entry.Changed {
			output = []byte(entry.Content)
		}

		return fileResult{path: path, output: output, changed: entry.Changed, report: entry.Report}
	}

	output, report, err := a.pass.TransformSource(ctx, path, src)
	if err != nil {
		return fileResult{path: path, report: report, err: err}
	}

	entry := CacheEntry{Signature: signature, Changed: report.Changed(), Report: report}
	if entry.Changed {
		entry.Content = string(output)
	}

	cache.put(path, entry)

	log.Debug("processed", "file", path, "state", report.State, "inserted", report.Inserted)

	return fileResult{path: path, output: output, changed: entry.Changed, report: report}
}

func (a *app) transform(ctx context.Context, paths []string, opts transformOptions) error {
	if opts.report != "" && opts.report != "json" {
		return fmt.Errorf("%w: %q", errUnknownReportFormat, opts.report)
	}

	if len(paths) == 0 {
		paths = []string{"."}
	}

	files, err := discover(a.fileSys, paths, a.file.Include, a.file.Exclude)
	if err != nil {
		return err
	}

	cache := a.openCache()

	results, err := a.process(ctx, files, cache)
	if err != nil {
		return err
	}

	if saveErr := cache.save(); saveErr != nil {
		a.logger.Warn("cache not saved", "err", saveErr)
	}

	var (
		errs    []error
		pending int
	)

	// Status lines go to stderr while stdout carries the report.
	status := a.stdout
	if opts.report != "" {
		status = a.stderr
	}

	for _, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}

		switch {
		case opts.check:
			if res.changed {
				pending++

				fmt.Fprintf(status, "%s would change\n", res.path)
			}
		case opts.stdout:
			_, err = a.stdout.Write(res.output)
			if err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
		case opts.write && res.changed:
			err = a.writeResult(ctx, res, status)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	if opts.report == "json" {
		err = a.writeReports(results)
		if err != nil {
			return err
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if pending > 0 {
		return fmt.Errorf("%w: %d", ErrWouldChange, pending)
	}

	return nil
}

// writeReports prints the reports of the files that were processed without error.
func (a *app) writeReports(results []fileResult) error {
	reports := make([]decoreg.Report, 0, len(results))

	for _, res := range results {
		if res.err == nil {
			reports = append(reports, res.report)
		}
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")

	err := enc.Encode(reports)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}

// writeResult replaces a file with its rewritten contents, keeping its permissions, and prints a
// status line to status.
func (a *app) writeResult(ctx context.Context, res fileResult, status io.Writer) error {
	perm := os.FileMode(sourcePerm)
	if info, err := a.fileSys.Stat(res.path); err == nil && info.Mode().Perm() != 0 {
		perm = info.Mode().Perm()
	}

	err := a.fileSys.WriteFile(res.path, res.output, perm)
	if err != nil {
		return fmt.Errorf("error writing %s: %w", res.path, err)
	}

	ctxlog.FromContext(ctx).Info("rewrote file",
		"file", res.path,
		"classes", len(res.report.Classes),
		"inserted", res.report.Inserted,
	)
	fmt.Fprintf(status, "%s written successfully.\n", res.path)

	return nil
}
