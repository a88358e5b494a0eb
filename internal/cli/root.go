package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Mearkatz/beetle-collatz/nonzero"
)

// RootOptions carries the global flags every subcommand sees.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the collatz CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "collatz",
		Short: "Collatz trajectory and record-scanning toolkit",
		Long: `Tools for exploring the 3n+1 problem: step counts, trajectories,
range verification, record hunts, journaled scans, and conformance suites.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			configureLogging(opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewStepsCommand(opts))
	cmd.AddCommand(NewTrajectoryCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd
}

// isValidFormat reports whether format is one of ValidFormats.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// configureLogging routes slog through stderr so command output on stdout
// stays parseable. Verbose lowers the level to debug.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// commandContext returns the command's context, falling back to Background
// when cobra was driven without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext derives a context that is canceled on SIGINT or SIGTERM, so
// long scans stop at the next poll instead of dying mid-write. The returned
// cancel also releases the signal handler.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(commandContext(cmd))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// parseUint parses a decimal command argument.
func parseUint(arg, name string) (uint64, error) {
	v, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid %s %q: expected an unsigned integer", name, arg))
	}
	return v, nil
}

// parseNonZero parses a decimal command argument that must be at least 1.
func parseNonZero(arg, name string) (nonzero.NonZero[uint64], error) {
	v, err := parseUint(arg, name)
	if err != nil {
		return nonzero.NonZero[uint64]{}, err
	}
	n, err := nonzero.New(v)
	if err != nil {
		return nonzero.NonZero[uint64]{}, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid %s: must be at least 1", name))
	}
	return n, nil
}

// parseRange builds the half-open range [start, stop) from two command
// arguments.
func parseRange(startArg, stopArg string) (nonzero.Range[uint64], error) {
	var zero nonzero.Range[uint64]
	start, err := parseNonZero(startArg, "start")
	if err != nil {
		return zero, err
	}
	stop, err := parseNonZero(stopArg, "stop")
	if err != nil {
		return zero, err
	}
	r, err := nonzero.NewRange(start, stop)
	if err != nil {
		return zero, WrapExitError(ExitCommandError, "invalid range", err)
	}
	return r, nil
}
