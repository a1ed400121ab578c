// Command gatewayctl is a thin CLI client for the code-execution gateway.
package main

import (
	"fmt"
	"os"

	"github.com/codeexec/gateway/cmd/gatewayctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
