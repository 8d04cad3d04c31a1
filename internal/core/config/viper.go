package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching DefaultConfig
	v.SetDefault("data_file", "./data.json")
	v.SetDefault("rules_file", "./rules.json")
	v.SetDefault("judge.endpoint", "")
	v.SetDefault("judge.model", "gpt-4o-mini")
	v.SetDefault("judge.timeout", "10s")

	// Bind environment variables with MERITD_ prefix
	v.SetEnvPrefix("MERITD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject secrets in config files
	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		DataFile:      v.GetString("data_file"),
		RulesFile:     v.GetString("rules_file"),
		JudgeEndpoint: v.GetString("judge.endpoint"),
		JudgeModel:    v.GetString("judge.model"),
		JudgeTimeout:  v.GetDuration("judge.timeout"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks required paths and a positive judge timeout.
func validateConfig(cfg *Config) error {
	if cfg.DataFile == "" {
		return fmt.Errorf("data_file must not be empty")
	}
	if cfg.JudgeTimeout <= 0 {
		return fmt.Errorf("judge.timeout must be positive, got %v", cfg.JudgeTimeout)
	}
	if cfg.JudgeEndpoint != "" && cfg.JudgeModel == "" {
		return fmt.Errorf("judge.model required when judge.endpoint is set")
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("judge.api_key") || v.IsSet("judge_api_key") {
		return fmt.Errorf("judge API key not allowed in config files (use MERITD_JUDGE_API_KEY environment variable)")
	}
	return nil
}
