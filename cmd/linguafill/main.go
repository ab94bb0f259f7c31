package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"codeberg.org/snonux/linguafill/internal/cli"
	"codeberg.org/snonux/linguafill/internal/history"
	"codeberg.org/snonux/linguafill/internal/logging"
	"codeberg.org/snonux/linguafill/internal/processor"
	"codeberg.org/snonux/linguafill/internal/queue"
	"codeberg.org/snonux/linguafill/internal/translate"
)

func main() {
	_ = godotenv.Load()

	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	logger, closeLog, err := logging.Setup(flags.Verbose, flags.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	// Handle --history flag
	if flags.ShowHistory {
		return showHistory(flags)
	}

	prompt, err := os.ReadFile(flags.PromptFile)
	if err != nil {
		return fmt.Errorf("could not read prompt file at %s: %w", flags.PromptFile, err)
	}

	dirs := queue.Dirs{
		Pending:   flags.PendingDir,
		Active:    flags.ActiveDir,
		Completed: flags.CompletedDir,
	}
	if err := dirs.Ensure(); err != nil {
		return err
	}

	// A user interrupt cancels the context; the per-item flush
	// ordering guarantees checkpoints stay consistent, so the runs
	// simply resume on the next invocation.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	translator, err := translate.New(ctx, translate.Config{
		Provider:     flags.Provider,
		APIKey:       cli.GetAPIKey(flags.Provider),
		BaseURL:      cli.GetAPIBaseURL(flags),
		Model:        cli.GetModel(flags),
		SystemPrompt: string(prompt),
	})
	if err != nil {
		return err
	}

	var hist *history.Store
	if flags.HistoryDB != "" {
		hist, err = history.Open(flags.HistoryDB)
		if err != nil {
			logger.Warn("job history disabled", "error", err)
			hist = nil
		} else {
			defer hist.Close()
		}
	}

	proc := processor.New(translator, processor.Config{
		Workers:      flags.Workers,
		AutoTune:     flags.AutoTune,
		APIDelay:     flags.APIDelay,
		CompletedDir: flags.CompletedDir,
	}, logger)

	process := func(ctx context.Context, jobPath string) error {
		result, err := proc.ProcessJob(ctx, jobPath)
		if err != nil {
			return err
		}
		if result.Completed && hist != nil {
			entry := history.Entry{
				Job:        filepath.Base(jobPath),
				Items:      result.Items,
				Written:    result.Written,
				Skipped:    result.Skipped,
				Workers:    result.Workers,
				Duration:   result.Duration,
				FinishedAt: time.Now(),
			}
			if err := hist.Record(entry); err != nil {
				logger.Warn("could not record job history", "error", err)
			}
		}
		return nil
	}

	q := queue.New(dirs, process, logger, flags.PollInterval)

	if flags.Watch {
		err = q.Watch(ctx)
	} else {
		err = q.RunOnce(ctx)
	}
	if ctx.Err() != nil {
		logger.Info("interrupted, in-flight jobs will resume on next run")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("all processing finished")
	return nil
}

func showHistory(flags *cli.Flags) error {
	hist, err := history.Open(flags.HistoryDB)
	if err != nil {
		return err
	}
	defer hist.Close()

	entries, err := hist.List(50)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No completed jobs recorded.")
		return nil
	}

	fmt.Printf("%-30s %8s %8s %8s %8s %12s  %s\n",
		"JOB", "ITEMS", "WRITTEN", "SKIPPED", "WORKERS", "DURATION", "FINISHED")
	for _, e := range entries {
		fmt.Printf("%-30s %8d %8d %8d %8d %12s  %s\n",
			e.Job, e.Items, e.Written, e.Skipped, e.Workers,
			e.Duration.Round(time.Millisecond),
			e.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
