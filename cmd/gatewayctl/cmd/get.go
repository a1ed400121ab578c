package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeexec/gateway/pkg/client"
)

var getCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Fetch a previously created run's record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		rec, err := c.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		return printRun(rec)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&runJSON, "json", false, "print the full run record as JSON")
}
