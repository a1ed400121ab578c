package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gorilla/websocket"

	"github.com/codeexec/gateway/pkg/client"
	"github.com/codeexec/gateway/pkg/types"
)

// frame mirrors internal/streamhub.Frame; duplicated here rather than
// imported since gatewayctl is a client of the gateway's public HTTP/WS
// surface, not a consumer of its internal packages.
type frame struct {
	Kind string `json:"kind"`
	Data string `json:"data"`
}

// streamRun submits req asynchronously and prints frames as they arrive
// until the run completes or errors.
func streamRun(ctx context.Context, c *client.Client, req types.RunRequest) error {
	hint, err := c.CreateRunStream(ctx, req)
	if err != nil {
		return fmt.Errorf("submit streaming run: %w", err)
	}

	url := c.StreamURL(hint.ID, hint.Hint)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect to run stream: %w", err)
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		switch f.Kind {
		case "stdout":
			fmt.Print(f.Data)
		case "stderr":
			fmt.Fprint(os.Stderr, f.Data)
		case "complete":
			return nil
		case "error":
			return fmt.Errorf("run failed: %s", f.Data)
		}
	}
}
