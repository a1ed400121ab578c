package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeexec/gateway/pkg/client"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>",
	Short: "Upload a file for staging into a future run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		name := filepath.Base(args[0])
		contentType := mime.TypeByExtension(filepath.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		uploaded, err := c.UploadFile(ctx, name, contentType, f)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		fmt.Printf("uploaded %s as file id %s (%d bytes)\n", name, uploaded.ID, uploaded.Size)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
