package cli

import "time"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile      string
	PendingDir   string
	ActiveDir    string
	CompletedDir string
	PromptFile   string
	LogFile      string
	Verbose      bool

	// Processing flags
	Workers      int
	AutoTune     bool
	APIDelay     time.Duration
	Watch        bool
	PollInterval time.Duration

	// Translation flags
	Provider string
	Model    string
	BaseURL  string

	// History flags
	HistoryDB   string
	ShowHistory bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		PendingDir:   "data/todo",
		ActiveDir:    "data/processing",
		CompletedDir: "data/done",
		PromptFile:   "prompts/system/translator.md",
		LogFile:      "processing.log",
		Workers:      1,
		PollInterval: 30 * time.Second,
		Provider:     "openai",
		Model:        "qwen/qwen3-8b",
		HistoryDB:    "linguafill.db",
	}
}
