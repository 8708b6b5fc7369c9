package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vla/internal/domain"
)

func writeCfg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vla.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// =============================================================================
// RunCheck
// =============================================================================

func TestRunCheck_WhenConfigMissing_ShouldNoteAndCompleteWithZero(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nonexistent.json")
	var out, errOut bytes.Buffer
	code := RunCheck(cfgPath, CheckOptions{}, &out, &errOut)
	if code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "No config") || !strings.Contains(out.String(), "--fix") {
		t.Errorf("expected missing-config note: %s", out.String())
	}
	if !strings.Contains(out.String(), "Check complete.") {
		t.Errorf("expected 'Check complete.' in output: %s", out.String())
	}
}

func TestRunCheck_WhenConfigMissingAndFix_ShouldWriteDefaultConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfgPath := filepath.Join(t.TempDir(), "vla.json")
	var out, errOut bytes.Buffer
	code := RunCheck(cfgPath, CheckOptions{Fix: true}, &out, &errOut)
	if code != 0 {
		t.Errorf("expected exit code 0, got %d: %s", code, out.String())
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("config file should exist after --fix: %v", err)
	}
	if !bytes.Contains(data, []byte("two_tool_explicit")) {
		t.Errorf("expected default config content: %s", data)
	}
	if !strings.Contains(out.String(), "Wrote default config") {
		t.Errorf("expected write note: %s", out.String())
	}
}

func TestRunCheck_WhenWriteDefaultFails_ShouldReturnOne(t *testing.T) {
	prev := configWriteDefault
	defer func() { configWriteDefault = prev }()
	configWriteDefault = func(string) error { return errors.New("disk full") }

	var out, errOut bytes.Buffer
	code := RunCheck(filepath.Join(t.TempDir(), "vla.json"), CheckOptions{Fix: true}, &out, &errOut)
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(errOut.String(), "disk full") {
		t.Errorf("expected error on stderr: %s", errOut.String())
	}
}

func TestRunCheck_WhenConfigMalformed_ShouldReturnOne(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := RunCheck(writeCfg(t, `{ nope`), CheckOptions{}, &out, &errOut); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

func TestRunCheck_WhenConfigValid_ShouldReportSections(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	path := writeCfg(t, `{
		"gateway": {"port": 9000, "auth": {"mode": "none"}},
		"agents": {"provider": "anthropic", "defaultModel": "claude-3-haiku"},
		"scheduling": {"apiKey": "chuck"}
	}`)
	var out, errOut bytes.Buffer
	code := RunCheck(path, CheckOptions{}, &out, &errOut)
	if code != 0 {
		t.Errorf("expected exit code 0, got %d: %s", code, out.String())
	}
	s := out.String()
	for _, want := range []string{"Loaded", "port=9000", "Auth is disabled", "provider=anthropic", "timezone=America/New_York", "backend=memory", "Check complete."} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in output: %s", want, s)
		}
	}
	if strings.Contains(s, "No API key") {
		t.Errorf("scheduling key was set: %s", s)
	}
}

func TestRunCheck_WhenConfigInvalid_ShouldListProblemsAndReturnOne(t *testing.T) {
	path := writeCfg(t, `{"agents": {"provider": "local", "prompt": "nope", "style": "react"}}`)
	var out, errOut bytes.Buffer
	if code := RunCheck(path, CheckOptions{}, &out, &errOut); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "agents.prompt") || !strings.Contains(out.String(), "agents.style") {
		t.Errorf("expected both problems listed: %s", out.String())
	}
}

func TestRunCheck_WhenProviderKeyMissing_ShouldReturnOne(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeCfg(t, `{"agents": {"provider": "openai"}}`)
	var out, errOut bytes.Buffer
	if code := RunCheck(path, CheckOptions{}, &out, &errOut); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "OPENAI_API_KEY") {
		t.Errorf("expected missing key named: %s", out.String())
	}
}

func TestRunCheck_WhenTimezoneUnknown_ShouldWarnOnly(t *testing.T) {
	path := writeCfg(t, `{"agents": {"provider": "local"}, "scheduling": {"timezone": "Mars/Olympus"}}`)
	var out, errOut bytes.Buffer
	if code := RunCheck(path, CheckOptions{}, &out, &errOut); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "UTC will be used") {
		t.Errorf("expected timezone warning: %s", out.String())
	}
}

func TestRunCheck_WhenSQLiteBackend_ShouldCreateDatabaseDir(t *testing.T) {
	dbDir := filepath.Join(t.TempDir(), "data")
	path := writeCfg(t, `{"agents": {"provider": "local"}, "state": {"backend": "sqlite", "databaseUrl": "file:`+dbDir+`/vla.db"}}`)
	var out, errOut bytes.Buffer
	if code := RunCheck(path, CheckOptions{}, &out, &errOut); code != 0 {
		t.Errorf("expected exit code 0, got %d: %s", code, out.String())
	}
	if info, err := os.Stat(dbDir); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be created: %v", dbDir, err)
	}
}

// =============================================================================
// helpers
// =============================================================================

func TestSQLiteDir(t *testing.T) {
	tests := []struct {
		st   domain.StateConfig
		want string
	}{
		{domain.StateConfig{Backend: "memory", DatabaseURL: "file:x/y.db"}, ""},
		{domain.StateConfig{Backend: "sqlite", DatabaseURL: "file:data/vla.db?_pragma=busy_timeout(5000)"}, "data"},
		{domain.StateConfig{Backend: "sqlite", DatabaseURL: "data/vla.db"}, "data"},
		{domain.StateConfig{Backend: "libsql", DatabaseURL: "libsql://db.turso.io"}, ""},
		{domain.StateConfig{Backend: "sqlite", DatabaseURL: ":memory:"}, ""},
	}
	for _, tt := range tests {
		if got := sqliteDir(tt.st); got != tt.want {
			t.Errorf("%+v: want %q, got %q", tt.st, tt.want, got)
		}
	}
}

func TestEnsureDir_WhenPathIsFile_ShouldReturnError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ensureDir(file, "state"); err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("want not-a-directory error, got %v", err)
	}
}

func TestEnsureDir_WhenMkdirFails_ShouldReturnError(t *testing.T) {
	prev := osMkdirAll
	defer func() { osMkdirAll = prev }()
	osMkdirAll = func(string, os.FileMode) error { return errors.New("read-only fs") }
	err := ensureDir(filepath.Join(t.TempDir(), "missing"), "state")
	if err == nil || !strings.Contains(err.Error(), "mkdir failed") {
		t.Errorf("want mkdir error, got %v", err)
	}
}
