package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	apiKey  string
)

var rootCmd = &cobra.Command{
	Use:   "gatewayctl",
	Short: "gatewayctl - submit and inspect code-execution gateway runs",
	Long: `gatewayctl is a command-line client for the code-execution gateway.

It submits code for execution, fetches run results, uploads input files,
and tails a run's live output.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", getEnvOrDefault("CODEEXEC_API_URL", "http://localhost:8080"), "gateway API base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("CODEEXEC_API_KEY"), "gateway API key")
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func checkAPIKey() error {
	if apiKey == "" {
		return fmt.Errorf("API key is required. Set CODEEXEC_API_KEY environment variable or use --api-key flag")
	}
	return nil
}
