package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"typesched/internal/load"
	"typesched/internal/logging"
	"typesched/internal/sched"
)

type loadFlags struct {
	tasks       int
	types       int
	maxDuration time.Duration
	concurrency int
	seed        int64
	csvPath     string
	logFile     string
	quiet       bool
}

func newLoadCmd() *cobra.Command {
	var f loadFlags

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive the scheduler with a synthetic stream of tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLoad(ctx, cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().IntVar(&f.tasks, "tasks", 10000, "Number of tasks to submit")
	cmd.Flags().IntVar(&f.types, "types", 8, "Number of distinct task types")
	cmd.Flags().DurationVar(&f.maxDuration, "max-duration", 10*time.Millisecond, "Upper bound of each task's random run time")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 4, "Number of concurrent submitters")
	cmd.Flags().Int64Var(&f.seed, "seed", time.Now().UnixNano(), "Random seed for task durations")
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "Write scheduler events as CSV to this file")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Write logs to a rotated file instead of stderr")
	cmd.Flags().BoolVar(&f.quiet, "quiet", false, "Do not print one line per event")

	return cmd
}

func runLoad(ctx context.Context, out io.Writer, f loadFlags) error {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := sched.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagDebug {
		cfg.LogLevel = "debug"
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}

	logger, closeLog := newLogger(cfg, f.logFile)
	defer closeLog()

	var rec *sched.Recorder
	if !f.quiet || f.csvPath != "" {
		if cfg.EventBuffer == 0 {
			cfg.EventBuffer = 1024
		}
		printer := out
		if f.quiet {
			printer = nil
		}
		rec = sched.NewRecorder(printer)
		if f.csvPath != "" {
			if err := rec.EnableCSVLogging(f.csvPath); err != nil {
				return fmt.Errorf("open csv log: %w", err)
			}
		}
	}

	s := sched.New(cfg, sched.WithLogger(logger))

	recCtx, stopRec := context.WithCancel(context.Background())
	defer stopRec()
	recDone := make(chan error, 1)
	if rec != nil {
		go func() { recDone <- rec.Run(recCtx, s.Events()) }()
	} else {
		recDone <- nil
	}

	rep, runErr := load.Run(ctx, s, load.Params{
		NumTasks:     f.tasks,
		NumTaskTypes: f.types,
		MaxDuration:  f.maxDuration,
		Concurrency:  f.concurrency,
		Seed:         f.seed,
	})

	// in-flight bodies are bounded by max-duration; give them room to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), f.maxDuration+5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Warn("scheduler did not drain", "error", err)
		// flush and close the CSV log with what was recorded so far
		stopRec()
	}
	if err := <-recDone; err != nil {
		logger.Warn("event recorder", "error", err)
	}

	fmt.Fprintln(out, rep.Summary())

	statsCtx, cancelStats := context.WithTimeout(context.Background(), time.Second)
	defer cancelStats()
	stats, err := s.Stats(statsCtx)
	if err != nil {
		logger.Warn("scheduler stats", "error", err)
	} else {
		fmt.Fprintf(out, "stats: admitted=%d rejected=%d completed=%d failed=%d panicked=%d dropped_events=%d\n",
			stats.Admitted, stats.Rejected, stats.Completed, stats.Failed, stats.Panicked, stats.DroppedEvents)
	}

	if rec != nil {
		note := ""
		if stats.DroppedEvents > 0 {
			note = " (best-effort, stream dropped events)"
		}
		fmt.Fprintf(out, "events: admitted=%d rejected=%d finished=%d failed=%d panicked=%d%s\n",
			rec.Count(sched.EventAdmitted),
			rec.Count(sched.EventRejected),
			rec.Count(sched.EventFinished),
			rec.Count(sched.EventFailed),
			rec.Count(sched.EventPanicked),
			note)
	}
	return runErr
}

// newLogger returns the logger and a func closing its rotated log file, if any.
func newLogger(cfg sched.Config, logFile string) (*slog.Logger, func()) {
	level := logging.ParseLevel(cfg.LogLevel)
	if logFile == "" {
		return logging.NewLogger(level, cfg.LogFormat), func() {}
	}
	lj := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
	}
	return logging.NewLoggerWithWriter(level, cfg.LogFormat, lj), func() { _ = lj.Close() }
}
