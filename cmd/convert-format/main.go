// The convert-format command converts files between the ls2 and lsx formats.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/liteser/lsfile/convert"
	"github.com/liteser/lsfile/errors"
	"github.com/liteser/lsfile/schema"
)

const long = `Reads files of INPUT_FORMAT from INPUT_PATH, and writes them to OUTPUT_PATH
in OUTPUT_FORMAT.

If INPUT_PATH is a directory, every file under it with the extension of
INPUT_FORMAT is converted, and written to the same relative path under
OUTPUT_PATH with the extension of OUTPUT_FORMAT. Otherwise, INPUT_PATH is
converted to the file OUTPUT_PATH.

Formats are "ls2" (binary) and "lsx" (XML). Record types are read from the
built-in schema and from each file given with --types.

Exits with 0 if every file was converted, 1 if any file failed or the run was
interrupted, and 2 if the arguments are invalid.`

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError is an error in the arguments, reported before any file is
// processed.
type usageError struct {
	err error
}

func (err usageError) Error() string { return err.err.Error() }
func (err usageError) Unwrap() error { return err.err }

type options struct {
	types     []string
	jobs      int
	compress  bool
	force     bool
	indent    string
	logLevel  string
	logFormat string
}

func newCommand(stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "convert-format INPUT_PATH OUTPUT_PATH INPUT_FORMAT OUTPUT_FORMAT",
		Short: "Convert files between the ls2 and lsx formats",
		Long:  long,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 4 {
				return usageError{fmt.Errorf("expected 4 arguments, got %d", len(args))}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), stderr, opts, args)
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.types, "types", nil, "Read record types from a YAML `file` (repeatable)")
	flags.IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "Number of files converted at once")
	flags.BoolVar(&opts.compress, "compress", false, "Write ls2 files in the compressed container")
	flags.BoolVarP(&opts.force, "force", "f", false, "Rewrite outputs even when unchanged")
	flags.StringVar(&opts.indent, "indent", "\t", "Indentation of lsx files")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Logging format (text, json)")

	return cmd
}

func newLogger(w io.Writer, level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	switch format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

func run(ctx context.Context, stderr io.Writer, opts options, args []string) error {
	inputPath, outputPath := args[0], args[1]
	inName, outName := strings.ToLower(args[2]), strings.ToLower(args[3])

	logger, err := newLogger(stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		return usageError{err}
	}

	reg, err := schema.NewRegistry(opts.types...)
	if err != nil {
		return usageError{err}
	}
	fopts := convert.Options{
		Registry: reg,
		Compress: opts.compress,
		Indent:   opts.indent,
	}
	from, err := convert.Lookup(inName, fopts)
	if err != nil {
		return usageError{err}
	}
	to, err := convert.Lookup(outName, fopts)
	if err != nil {
		return usageError{err}
	}

	jobs, err := convert.Match(inputPath, outputPath, from.Name(), to.Name())
	if err != nil {
		return err
	}

	c := convert.Converter{
		From:  from,
		To:    to,
		Jobs:  opts.jobs,
		Force: opts.force,
		Log:   logrus.NewEntry(logger),
	}
	summary := c.Run(ctx, jobs)
	entry := logger.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"unchanged": summary.Unchanged,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	})
	if summary.Err() != nil {
		entry.Error(summary.String())
	} else {
		entry.Info(summary.String())
	}
	return summary.Err()
}

// execute runs the command with args, and returns the exit code.
func execute(ctx context.Context, stderr io.Writer, args []string) int {
	cmd := newCommand(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "error: %s\n\n%s", err, cmd.UsageString())
		return exitUsage
	}
	var summaryErr errors.Errors
	if !errors.As(err, &summaryErr) {
		// Per-file failures have already been logged.
		fmt.Fprintf(stderr, "error: %s\n", err)
	}
	return exitFailure
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Stderr, os.Args[1:])
	stop()
	os.Exit(code)
}
