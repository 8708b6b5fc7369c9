// Package cli holds the operator-facing commands: config check, the prospect
// chat REPL and the prompt and tool listings.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vla/internal/config"
	"vla/internal/domain"
	"vla/internal/llm"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Fix bool // if true, write default config when missing
}

// providerSecrets maps keyed providers to the secret they need.
var providerSecrets = map[string]string{
	"openai":     llm.SecretOpenAI,
	"anthropic":  llm.SecretAnthropic,
	"openrouter": llm.SecretOpenRouter,
}

// RunCheck loads and validates cfgPath and reports on each section.
// Returns the process exit code.
func RunCheck(cfgPath string, opts CheckOptions, stdout, stderr io.Writer) int {
	note := func(section, message string) {
		fmt.Fprintf(stdout, "  [%s] %s\n", section, message)
	}

	cfg, err := configLoad(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			note("Config", err.Error())
			return 1
		}
		note("Config", fmt.Sprintf("No config at %s.", cfgPath))
		if !opts.Fix {
			note("Config", "Run with --fix to create a default vla.json.")
			fmt.Fprintln(stdout, "  Check complete.")
			return 0
		}
		if writeErr := configWriteDefault(cfgPath); writeErr != nil {
			fmt.Fprintf(stderr, "  failed to write default config: %v\n", writeErr)
			return 1
		}
		note("Config", fmt.Sprintf("Wrote default config to %s.", cfgPath))
		if cfg, err = configLoad(cfgPath); err != nil {
			note("Config", err.Error())
			return 1
		}
	} else {
		note("Config", fmt.Sprintf("Loaded %s.", cfgPath))
	}

	code := 0
	if err := config.Validate(cfg); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			note("Config", line)
		}
		code = 1
	}

	note("Gateway", fmt.Sprintf("port=%d auth=%s", cfg.Gateway.Port, cfg.Gateway.Auth.Mode))
	if cfg.Gateway.Auth.Mode == "none" {
		note("Gateway", "Auth is disabled. Consider setting gateway.auth.mode to \"token\" for production.")
	}

	note("Agents", fmt.Sprintf("provider=%s model=%s prompt=%s style=%s",
		cfg.Agents.Provider, cfg.Agents.DefaultModel, cfg.Agents.Prompt, cfg.Agents.Style))
	if name, ok := providerSecrets[cfg.Agents.Provider]; ok {
		if _, err := config.Secrets(cfg)(name); err != nil {
			note("Agents", err.Error())
			code = 1
		}
	}

	note("Scheduling", fmt.Sprintf("api=%s timezone=%s", cfg.Scheduling.BaseURL, cfg.Scheduling.Timezone))
	if cfg.Scheduling.APIKey == "" {
		note("Scheduling", "No API key; set scheduling.apiKey or CHUCK_API_KEY.")
	}
	if cfg.Scheduling.Timezone != "" {
		if _, err := loadLocation(cfg.Scheduling.Timezone); err != nil {
			note("Scheduling", fmt.Sprintf("timezone: %v (UTC will be used)", err))
		}
	}

	note("State", fmt.Sprintf("backend=%s", cfg.State.Backend))
	if dir := sqliteDir(cfg.State); dir != "" {
		if err := ensureDir(dir, "state.databaseUrl"); err != nil {
			note("State", err.Error())
			code = 1
		} else {
			note("State", fmt.Sprintf("database dir %s ok.", dir))
		}
	}

	fmt.Fprintln(stdout, "  Check complete.")
	return code
}

// sqliteDir returns the directory of a local sqlite database, or "" when the
// backend is remote or not sqlite.
func sqliteDir(st domain.StateConfig) string {
	if st.Backend != "sqlite" && st.Backend != "libsql" {
		return ""
	}
	path := strings.TrimPrefix(st.DatabaseURL, "file:")
	if path == "" || path == ":memory:" || strings.Contains(path, "://") {
		return ""
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return filepath.Dir(path)
}

func ensureDir(dir, label string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	info, err := osStat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := osMkdirAll(abs, 0755); mkErr != nil {
				return fmt.Errorf("%s %q: mkdir failed: %w", label, abs, mkErr)
			}
			return nil
		}
		return fmt.Errorf("%s %q: %w", label, abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s %q: not a directory", label, abs)
	}
	return nil
}
