package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talkbox/talkbox/cmd/talkbox/internal/config"
)

var (
	// Global flags
	verbose bool

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "talkbox",
	Short: "Conversational voice chat in your terminal",
	Long: `talkbox - a conversational chat client with voice output.

Replies arrive from a remote exchange service and are revealed
incrementally, typewriter style. The conversation log persists across
runs, bounded to the most recent turns.

Configuration lives in the OS config directory:
  macOS:   ~/Library/Application Support/talkbox/config.yaml
  Linux:   ~/.config/talkbox/config.yaml
  Windows: %AppData%/talkbox/config.yaml

Examples:
  # Start chatting
  talkbox chat

  # Inspect and prune the persisted log
  talkbox history list
  talkbox history clear`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		// Commands that need config get a clear error via GetConfig();
		// commands like 'talkbox version' still work.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
