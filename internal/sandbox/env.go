package sandbox

import "strings"

// baseEnv is seeded into every run before tenant-supplied environment
// variables are merged in, matching the bootstrap contract's fixed
// working directory layout.
var baseEnv = map[string]string{
	"HOME":   "/work",
	"TMPDIR": "/work/tmp",
}

// Sanitize builds the final environment for a run: it starts from
// baseEnv, layers in the caller-supplied vars, drops any key that begins
// with "LD_" (case-insensitive) so a run can never inject a dynamic
// loader override such as LD_PRELOAD into the sandboxed process, and
// finally re-pins baseEnv so a caller can never override HOME or TMPDIR
// away from the sandbox's fixed working directory layout.
//
// Grounded on the merge-then-filter loop the teacher uses when composing
// container environments in internal/podman/container.go; re-pinning
// base vars last matches original_source/runners/go/entrypoint.py's own
// enforce-after-merge order.
func Sanitize(requested map[string]string) map[string]string {
	out := make(map[string]string, len(baseEnv)+len(requested))
	for k, v := range baseEnv {
		out[k] = v
	}
	for k, v := range requested {
		if isLoaderVar(k) {
			continue
		}
		out[k] = v
	}
	for k, v := range baseEnv {
		out[k] = v
	}
	return out
}

func isLoaderVar(key string) bool {
	return len(key) >= 3 && strings.EqualFold(key[:3], "LD_")
}
