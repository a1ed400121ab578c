package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("CODEEXEC_PORT")
	os.Unsetenv("CODEEXEC_API_KEYS")
	os.Unsetenv("CODEEXEC_DEFAULT_TIMEOUT_MS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.DefaultTimeoutMS != 10_000 {
		t.Errorf("expected default timeout 10000ms, got %d", cfg.DefaultTimeoutMS)
	}
	if len(cfg.APIKeys) != 0 {
		t.Errorf("expected no API keys configured, got %v", cfg.APIKeys)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("CODEEXEC_PORT", "9999")
	os.Setenv("CODEEXEC_API_KEYS", "key-a:tenant-a:10:20,key-b:tenant-b")
	os.Setenv("CODEEXEC_DEFAULT_MEMORY_MB", "512")
	defer func() {
		os.Unsetenv("CODEEXEC_PORT")
		os.Unsetenv("CODEEXEC_API_KEYS")
		os.Unsetenv("CODEEXEC_DEFAULT_MEMORY_MB")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.DefaultMemoryMB != 512 {
		t.Errorf("expected default memory 512, got %d", cfg.DefaultMemoryMB)
	}
	if len(cfg.APIKeys) != 2 {
		t.Fatalf("expected two parsed API keys, got %v", cfg.APIKeys)
	}
	if cfg.APIKeys[0].Token != "key-a" || cfg.APIKeys[0].Label != "tenant-a" || cfg.APIKeys[0].RPS != 10 || cfg.APIKeys[0].Burst != 20 {
		t.Errorf("unexpected first key: %+v", cfg.APIKeys[0])
	}
	if cfg.APIKeys[1].Token != "key-b" || cfg.APIKeys[1].Label != "tenant-b" || cfg.APIKeys[1].RPS != 0 {
		t.Errorf("unexpected second key: %+v", cfg.APIKeys[1])
	}

	tk := cfg.TenantKeys()
	if tk["key-a"] != "tenant-a" || tk["key-b"] != "tenant-b" {
		t.Errorf("unexpected tenant keys: %v", tk)
	}

	rl := cfg.RateLimitConfig()
	if rl.PerKey["tenant-a"].RPS != 10 || rl.PerKey["tenant-a"].Burst != 20 {
		t.Errorf("unexpected per-key rate limit override: %v", rl.PerKey)
	}
	if _, ok := rl.PerKey["tenant-b"]; ok {
		t.Errorf("expected no override for tenant-b, got %v", rl.PerKey["tenant-b"])
	}
}

func TestLoadInvalidPort(t *testing.T) {
	os.Setenv("CODEEXEC_PORT", "not-a-number")
	defer os.Unsetenv("CODEEXEC_PORT")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid port, got nil")
	}
}

func TestParseAPIKeysSkipsMalformedEntries(t *testing.T) {
	pairs := parseAPIKeys("key-a:tenant-a, malformed, key-b:tenant-b:5:5")
	if len(pairs) != 2 {
		t.Fatalf("expected 2 valid pairs, got %d: %v", len(pairs), pairs)
	}
}
