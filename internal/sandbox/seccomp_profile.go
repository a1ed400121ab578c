package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
)

func writeSeccompProfile(destPath string, profile seccompProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("sandbox: marshal seccomp profile: %w", err)
	}
	if err := os.WriteFile(destPath, raw, 0644); err != nil {
		return fmt.Errorf("sandbox: write seccomp profile %s: %w", destPath, err)
	}
	return nil
}
