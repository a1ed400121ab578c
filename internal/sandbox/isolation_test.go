package sandbox

import "testing"

func TestSecurityOptsDisabled(t *testing.T) {
	cfg := IsolationConfig{DisableSecurity: true, SeccompProfilePath: "/tmp/profile.json"}
	if opts := cfg.SecurityOpts(); opts != nil {
		t.Fatalf("expected no security opts when disabled, got %v", opts)
	}
}

func TestSecurityOptsEnabled(t *testing.T) {
	cfg := IsolationConfig{SeccompProfilePath: "/tmp/profile.json"}
	opts := cfg.SecurityOpts()
	if len(opts) != 2 {
		t.Fatalf("expected 2 security opts, got %v", opts)
	}
	if opts[0] != "no-new-privileges" {
		t.Fatalf("expected no-new-privileges first, got %v", opts)
	}
	if opts[1] != "seccomp=/tmp/profile.json" {
		t.Fatalf("expected seccomp profile opt, got %v", opts)
	}
}
