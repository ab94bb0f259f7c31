package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/linguafill/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linguafill",
		Short: "Resumable AI batch translation of multilingual JSON records",
		Long: `linguafill fills in missing language fields of JSON record
collections by calling an AI generation service.

Jobs are JSON files dropped into a todo directory. Each job is claimed
into a processing directory, worked through with a bounded worker pool
and crash-safe checkpointing, and finalized into a done directory.
Interrupted jobs resume exactly where they left off.

Examples:
  linguafill                       # Process all queued jobs once
  linguafill --watch               # Keep polling for new jobs
  linguafill --workers 8           # Fixed worker pool size
  linguafill --auto-tune           # Discover the best worker count`,
		Args:    cobra.NoArgs,
		Version: internal.Version,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.linguafill.yaml)")

	// Local flags
	cmd.Flags().StringVar(&flags.PendingDir, "todo-dir", flags.PendingDir, "Directory with job files to process")
	cmd.Flags().StringVar(&flags.ActiveDir, "processing-dir", flags.ActiveDir, "Directory holding jobs being processed")
	cmd.Flags().StringVar(&flags.CompletedDir, "done-dir", flags.CompletedDir, "Directory to move completed jobs to")
	cmd.Flags().StringVar(&flags.PromptFile, "prompt-file", flags.PromptFile, "Path to the system prompt file")
	cmd.Flags().StringVar(&flags.LogFile, "log-file", flags.LogFile, "Log file path (empty disables file logging)")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	cmd.Flags().IntVarP(&flags.Workers, "workers", "w", flags.Workers, "Worker pool size per job")
	cmd.Flags().BoolVar(&flags.AutoTune, "auto-tune", false, "Benchmark worker counts at runtime and use the fastest")
	cmd.Flags().DurationVar(&flags.APIDelay, "api-delay", 0, "Delay before each API call")
	cmd.Flags().BoolVar(&flags.Watch, "watch", false, "Keep polling the todo directory for new jobs")
	cmd.Flags().DurationVar(&flags.PollInterval, "poll-interval", flags.PollInterval, "Polling interval in watch mode")

	cmd.Flags().StringVar(&flags.Provider, "provider", flags.Provider, "Translation provider: openai or gemini")
	cmd.Flags().StringVar(&flags.Model, "model", flags.Model, "Model name for the API request")
	cmd.Flags().StringVar(&flags.BaseURL, "api-url", "", "OpenAI-format endpoint URL (defaults to the official API)")

	cmd.Flags().StringVar(&flags.HistoryDB, "history-db", flags.HistoryDB, "Path of the job history database")
	cmd.Flags().BoolVar(&flags.ShowHistory, "history", false, "Print recent completed jobs and exit")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("dirs.todo", cmd.Flags().Lookup("todo-dir"))
	viper.BindPFlag("dirs.processing", cmd.Flags().Lookup("processing-dir"))
	viper.BindPFlag("dirs.done", cmd.Flags().Lookup("done-dir"))
	viper.BindPFlag("prompt.file", cmd.Flags().Lookup("prompt-file"))
	viper.BindPFlag("log.file", cmd.Flags().Lookup("log-file"))
	viper.BindPFlag("workers.count", cmd.Flags().Lookup("workers"))
	viper.BindPFlag("workers.auto_tune", cmd.Flags().Lookup("auto-tune"))
	viper.BindPFlag("api.delay", cmd.Flags().Lookup("api-delay"))
	viper.BindPFlag("api.provider", cmd.Flags().Lookup("provider"))
	viper.BindPFlag("api.model", cmd.Flags().Lookup("model"))
	viper.BindPFlag("api.base_url", cmd.Flags().Lookup("api-url"))
	viper.BindPFlag("history.db", cmd.Flags().Lookup("history-db"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".linguafill" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".linguafill")
	}

	// Environment variables
	viper.SetEnvPrefix("LINGUAFILL")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetAPIKey retrieves the provider API key from environment or config
func GetAPIKey(provider string) string {
	switch provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return viper.GetString("api.gemini_key")
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
		return viper.GetString("api.openai_key")
	}
}

// GetAPIBaseURL retrieves the OpenAI-format endpoint override from
// flags, environment or config
func GetAPIBaseURL(flags *Flags) string {
	if flags.BaseURL != "" {
		return flags.BaseURL
	}
	if url := os.Getenv("LINGUAFILL_API_URL"); url != "" {
		return url
	}
	return viper.GetString("api.base_url")
}

// GetModel retrieves the model name, falling back to the environment
func GetModel(flags *Flags) string {
	if flags.Model != "" {
		return flags.Model
	}
	if model := os.Getenv("AI_MODEL_NAME"); model != "" {
		return model
	}
	return viper.GetString("api.model")
}
