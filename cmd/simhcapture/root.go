// Package main implements the simhcapture command-line tool: a thin cobra
// front end over the capture pipeline, resolving device shorthand via
// captureconfig and reporting the documented exit codes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sergev/simhcapture/capture"
	"github.com/sergev/simhcapture/capturelog"
	"github.com/sergev/simhcapture/captureconfig"
	"github.com/sergev/simhcapture/simhio"
	"github.com/sergev/simhcapture/tapedev"
)

// cliError carries the process exit code alongside a human-readable
// message, per the capture CLI's documented exit code contract.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

const (
	exitUsage    = 1
	exitIO       = 2
	exitInternal = 3
)

var (
	flagMaxReattempts int
	flagBufferSize    int
	flagQueueDepth    int
	flagLogFormat     string
)

var rootCmd = &cobra.Command{
	Use:   "simhcapture <input> <output>",
	Short: "Capture magnetic tape contents into a SIMH Extended .tap image",
	Long: `simhcapture streams blocks from a tape device, regular file, or
standard input and serializes them into a SIMH Extended tape-image (.tap)
file, one data record per device read, honoring tape marks and erase gaps
the same way the SIMH simulator itself does.`,
	Args: cobra.ExactArgs(2),
	RunE: runCapture,
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.Flags().IntVar(&flagMaxReattempts, "max-reattempts", 64, "retry budget for hard read errors")
	rootCmd.Flags().IntVar(&flagBufferSize, "buffer-size", 65536, "read buffer size in bytes")
	rootCmd.Flags().IntVar(&flagQueueDepth, "queue-depth", 4, "number of buffers in flight between reader and writer")
	rootCmd.Flags().StringVar(&flagLogFormat, "log-format", "text", "diagnostic log format: text or json")
}

func runCapture(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]

	log := capturelog.New(capturelog.LevelInfo, capturelog.ParseFormat(flagLogFormat), os.Stderr)

	conf, err := captureconfig.Load()
	if err != nil {
		return &cliError{code: exitInternal, err: err}
	}
	profile, err := captureconfig.Resolve(conf, input)
	if err != nil {
		return &cliError{code: exitUsage, err: err}
	}

	opts := profile.Options()
	if cmd.Flags().Changed("max-reattempts") {
		opts.MaxReattempts = flagMaxReattempts
	}
	if cmd.Flags().Changed("buffer-size") {
		opts.BufferSize = flagBufferSize
	}
	if cmd.Flags().Changed("queue-depth") {
		opts.QueueDepth = flagQueueDepth
	}

	src, err := openSource(profile.Path)
	if err != nil {
		return &cliError{code: exitIO, err: err}
	}
	defer src.Close()

	outFile, err := os.Create(output)
	if err != nil {
		return &cliError{code: exitIO, err: fmt.Errorf("create %s: %w", output, err)}
	}
	defer outFile.Close()

	w := simhio.NewWriter(outFile)
	pipeline := capture.New(src, w, opts, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stats, err := pipeline.Run(ctx)
	log.Info("capture finished", capturelog.Fields{
		capturelog.FieldRecords:      stats.Records,
		capturelog.FieldTapeMarks:    stats.TapeMarks,
		capturelog.FieldBadRecords:   stats.BadRecords,
		capturelog.FieldBytesWritten: stats.BytesWritten,
	})
	if err != nil {
		return &cliError{code: exitIO, err: err}
	}
	return nil
}

func openSource(path string) (tapedev.Source, error) {
	if path == "-" {
		return tapedev.Stdin(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return tapedev.OpenFile(path)
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return tapedev.OpenCharDevice(path)
	}
	return tapedev.OpenFile(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "simhcapture:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if ce, ok := err.(*cliError); ok {
		return ce.code
	}
	return exitUsage
}
