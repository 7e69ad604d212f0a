package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"voice-agent/internal/common/config"
	"voice-agent/internal/common/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "voice-agent",
	Short: "Voice command interpreter for the maintenance portal",
	Long: "voice-agent turns spoken maintenance commands into searches, navigation,\n" +
		"work entries and document lookups, and runs the multi-agent document search.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	addGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.Version = version
}

func addGlobalFlags(f *pflag.FlagSet) {
	f.StringVarP(&rootFlags.configPath, "config", "c", "", "Path to config.yaml (default: ./configs/config.yaml)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
}

// loadConfig reads the config named by --config, or the default search path.
func loadConfig() (*config.Config, error) {
	if rootFlags.configPath != "" {
		return config.LoadFromFile(rootFlags.configPath)
	}
	return config.Load()
}

func newZapLogger(cfg *config.Config) *zap.Logger {
	level := cfg.Logging.Level
	if rootFlags.logLevel != "" {
		level = rootFlags.logLevel
	}
	return logger.New(level, cfg.Logging.Format, cfg.Logging.Output)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
