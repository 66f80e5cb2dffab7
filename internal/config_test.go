package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestStorageConfig_EmptyDriverDefaultsFS(t *testing.T) {
	cfg := StorageConfig{Path: "./data"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty driver should default to fs: %v", err)
	}
	if cfg.Driver != "fs" {
		t.Errorf("driver = %q, want fs", cfg.Driver)
	}
}

func TestStorageConfig_Drivers(t *testing.T) {
	for _, d := range []string{"fs", "sqlite3", "sqlite"} {
		cfg := StorageConfig{Driver: d, Path: "x"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("driver %q should pass: %v", d, err)
		}
	}
	cfg := StorageConfig{Driver: "redis", Path: "x"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown driver should fail")
	}
	cfg = StorageConfig{Driver: "fs"}
	if err := cfg.Validate(); err == nil {
		t.Error("missing path should fail")
	}
}

func TestScriptsConfig(t *testing.T) {
	cfg := ScriptsConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled scripts need no timeout: %v", err)
	}
	cfg = ScriptsConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled scripts without timeout should fail")
	}
	cfg = ScriptsConfig{Enabled: true, Timeout: 2 * time.Minute}
	if err := cfg.Validate(); err == nil {
		t.Error("timeout above one minute should fail")
	}
	cfg = ScriptsConfig{Enabled: true, Timeout: time.Second}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid scripts config failed: %v", err)
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := HTTPConfig{Port: 9090}
	if cfg.Address() != ":9090" {
		t.Errorf("address = %q", cfg.Address())
	}
	cfg.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("port 0 should fail")
	}
}
