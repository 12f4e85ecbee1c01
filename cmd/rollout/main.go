// Command rollout spawns environment workers and collects batched experience
// from them.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/roackb2/rollout/config"
	"github.com/spf13/cobra"
)

var (
	configEnv string
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Batched experience collection across environment workers",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return config.LoadConfig(configEnv, configDir)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configEnv, "env", "dev", "Configuration name, read from <config-dir>/<env>.yaml")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "Directory holding configuration files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newCollectCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newShapesCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rollout failed: %v\n", err)
		os.Exit(1)
	}
}
