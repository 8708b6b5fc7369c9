// Package config loads the agent's JSON configuration through viper so every
// key can be overridden from the environment (VLA_<SECTION>_<KEY>).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"vla/internal/domain"
	"vla/internal/prompts"
)

// DefaultPath is used when neither a flag nor VLA_CONFIG names a file.
const DefaultPath = "vla.json"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VLA"

// marshalIndent and writeFile are used by WriteDefault and Save; tests may replace to force errors.
var (
	marshalIndent = json.MarshalIndent
	writeFile     = os.WriteFile
)

// Path returns explicit when set, then $VLA_CONFIG, then DefaultPath.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Defaults returns the configuration used for keys a file leaves out.
func Defaults() *domain.Config {
	return &domain.Config{
		Gateway: domain.GatewayConfig{
			Port:           8000,
			Auth:           domain.AuthConfig{Mode: "none"},
			AllowedOrigins: []string{},
			ReadTimeout:    30,
			WriteTimeout:   120,
		},
		Agents: domain.AgentsConfig{
			Provider:      "openai",
			DefaultModel:  "gpt-3.5-turbo",
			Temperature:   0,
			Prompt:        prompts.Default,
			Style:         "chat_conversational",
			MaxIterations: 15,
			CallTimeout:   60,
			ContextTokens: 2000,
			Encoding:      "cl100k_base",
		},
		Scheduling: domain.SchedulingConfig{
			BaseURL:         "https://nestiolistings.com",
			Timeout:         30,
			MaxRetries:      2,
			RateLimit:       5,
			Burst:           5,
			Timezone:        "America/New_York",
			MaxTimesToShow:  5,
			AMToPMThreshold: 8,
			TourType:        "guided",
		},
		State: domain.StateConfig{Backend: "memory", TTLHours: 72},
		Infra: domain.InfraConfig{LogFormat: "text", LogLevel: "info"},
		Retry: domain.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: 500,
			MaxBackoff:     30000,
			Multiplier:     2,
		},
	}
}

// WriteDefault writes Defaults to path (e.g. vla.json).
func WriteDefault(path string) error {
	data, err := marshalIndent(Defaults(), "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, data, 0644)
}

// Load reads path, layers VLA_* environment overrides on top and fills the
// rest from Defaults. An empty path skips the file. A missing or malformed
// file is an error.
func Load(path string) (*domain.Config, error) {
	v := viper.New()
	if err := setDefaults(v); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// omitempty keys never reach setDefaults.
	for _, key := range []string{
		"gateway.auth.authtoken", "agents.baseurl", "agents.apikey",
		"state.redisaddr", "state.redispassword", "state.databaseurl",
	} {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	_ = v.BindEnv("scheduling.apikey", EnvPrefix+"_SCHEDULING_APIKEY", "CHUCK_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
	}

	var c domain.Config
	if err := v.Unmarshal(&c, func(dc *mapstructure.DecoderConfig) { dc.TagName = "json" }); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	return &c, nil
}

// setDefaults registers every leaf of Defaults so AutomaticEnv can see keys
// a file does not mention.
func setDefaults(v *viper.Viper) error {
	data, err := json.Marshal(Defaults())
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	walkDefaults(v, "", tree)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := val.(map[string]any); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Secrets returns a lookup for provider API keys. agents.apiKey wins when
// set; otherwise the name is read from the environment upper-cased
// (openai_api_key -> OPENAI_API_KEY).
func Secrets(cfg *domain.Config) func(name string) (string, error) {
	return func(name string) (string, error) {
		if cfg != nil && cfg.Agents.APIKey != "" {
			return cfg.Agents.APIKey, nil
		}
		env := strings.ToUpper(name)
		if val := os.Getenv(env); val != "" {
			return val, nil
		}
		return "", fmt.Errorf("secret %s not set", env)
	}
}

var (
	validStyles   = map[string]bool{"chat_conversational": true, "zero_shot": true}
	validBackends = map[string]bool{"memory": true, "redis": true, "sqlite": true, "libsql": true}
	validFormats  = map[string]bool{"json": true, "text": true}
)

// Validate reports every problem in cfg at once.
func Validate(cfg *domain.Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	var errs []error
	if p := cfg.Gateway.Port; p < 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port %d out of range", p))
	}
	if cfg.Gateway.Auth.Mode == "token" && cfg.Gateway.Auth.AuthToken == "" {
		errs = append(errs, errors.New("gateway.auth.mode is token but authToken is empty"))
	}
	if t := cfg.Agents.Temperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("agents.temperature %.2f outside [0, 2]", t))
	}
	if !prompts.Has(cfg.Agents.Prompt) || cfg.Agents.Prompt == prompts.DisableVLA {
		errs = append(errs, fmt.Errorf("agents.prompt %q is not an agent prompt (have %s)",
			cfg.Agents.Prompt, strings.Join(prompts.Names(), ", ")))
	}
	if !validStyles[cfg.Agents.Style] {
		errs = append(errs, fmt.Errorf("agents.style %q (use chat_conversational or zero_shot)", cfg.Agents.Style))
	}
	if cfg.Agents.MaxIterations < 1 {
		errs = append(errs, errors.New("agents.maxIterations must be at least 1"))
	}
	if cfg.Scheduling.MaxTimesToShow < 1 {
		errs = append(errs, errors.New("scheduling.maxTimesToShow must be at least 1"))
	}
	if h := cfg.Scheduling.AMToPMThreshold; h < 1 || h > 12 {
		errs = append(errs, fmt.Errorf("scheduling.amToPmThreshold %d outside [1, 12]", h))
	}
	if !validBackends[cfg.State.Backend] {
		errs = append(errs, fmt.Errorf("state.backend %q (use memory, redis or sqlite)", cfg.State.Backend))
	}
	if cfg.State.Backend == "redis" && cfg.State.RedisAddr == "" {
		errs = append(errs, errors.New("state.redisAddr is required for the redis backend"))
	}
	if !validFormats[cfg.Infra.LogFormat] {
		errs = append(errs, fmt.Errorf("infra.logFormat %q (use json or text)", cfg.Infra.LogFormat))
	}
	return errors.Join(errs...)
}

// Save writes cfg to path as JSON.
func Save(path string, cfg *domain.Config) error {
	if cfg == nil {
		return fmt.Errorf("config save: nil config")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("config save mkdir: %w", err)
	}
	data, err := marshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config save marshal: %w", err)
	}
	if err = writeFile(path, data, 0644); err != nil {
		return fmt.Errorf("config save write: %w", err)
	}
	return nil
}
