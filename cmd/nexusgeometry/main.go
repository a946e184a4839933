package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"nexusgeometry/pkg/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "nexusgeometry",
	Short: "Generate and inspect neutron instrument geometry files",
	Long: `nexusgeometry builds the LoKI detector geometry (banks, tubes, straws and
pixels) from calibration corner points and writes it, together with the fixed
instrument components, as a NeXus tree into a persistent store.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel(verbose, configPath)
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// logLevel returns Debug when the flag or the config file's output.verbose
// asks for it. A config that fails to load is reported by the command itself.
func logLevel(flag bool, path string) slog.Level {
	if flag {
		return slog.LevelDebug
	}
	if cfg, err := config.LoadConfig(path); err == nil && cfg.Output.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
