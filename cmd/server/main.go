package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"supplyline/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "supplyline",
	Short: "Supply chain back office server",
	Long: "Supply chain back office: REST API, role-based WebSocket fan-out, " +
		"and a periodic simulation of inventory and delivery activity.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd, seedCmd, schemaCmd)
}

// loadConfig resolves the effective config: the file when --config is given,
// built-in defaults otherwise.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
