package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeexec/gateway/pkg/client"
	"github.com/codeexec/gateway/pkg/types"
)

var (
	runLanguage   string
	runFile       string
	runArgsString string
	runTimeoutMS  int64
	runMemoryMB   int64
	runJSON       bool
	runFollow     bool
)

var runCmd = &cobra.Command{
	Use:   "run <code-file>",
	Short: "Submit code for execution and wait for the result",
	Long: `Submit a code file for execution in the gateway and print its result.
Example: gatewayctl run --language python script.py
         cat script.py | gatewayctl run --language python -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}
		if runLanguage == "" {
			return fmt.Errorf("--language is required")
		}

		code, err := readCodeArg(args[0])
		if err != nil {
			return err
		}

		req := types.RunRequest{
			Language:   types.Language(runLanguage),
			Code:       code,
			ArgsString: runArgsString,
		}
		if runTimeoutMS > 0 || runMemoryMB > 0 {
			req.Limits = &types.RunLimits{TimeoutMS: runTimeoutMS, MemoryMB: runMemoryMB}
		}

		c := client.NewClient(baseURL, apiKey)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if runFollow {
			return streamRun(ctx, c, req)
		}

		rec, err := c.CreateRun(ctx, req)
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		return printRun(rec)
	},
}

func readCodeArg(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read code from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read code file %q: %w", arg, err)
	}
	return string(data), nil
}

func printRun(rec *types.RunRecord) error {
	if runJSON {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if rec.Stdout != "" {
		fmt.Print(rec.Stdout)
	}
	if rec.Stderr != "" {
		fmt.Fprint(os.Stderr, rec.Stderr)
	}
	if rec.Status != types.RunStatusSucceeded {
		exitCode := -1
		if rec.ExitCode != nil {
			exitCode = *rec.ExitCode
		}
		return fmt.Errorf("run %s: status=%s exit_code=%d", rec.ID, rec.Status, exitCode)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runLanguage, "language", "l", "", "execution language (python, node, ruby, php, go)")
	runCmd.Flags().StringVar(&runArgsString, "args", "", "program arguments, shell-quoted")
	runCmd.Flags().Int64Var(&runTimeoutMS, "timeout-ms", 0, "run timeout in milliseconds (0 uses the gateway default)")
	runCmd.Flags().Int64Var(&runMemoryMB, "memory-mb", 0, "memory limit in megabytes (0 uses the gateway default)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full run record as JSON")
	runCmd.Flags().BoolVar(&runFollow, "follow", false, "stream live output instead of waiting for completion")
}
