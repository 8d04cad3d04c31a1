// Package config provides configuration management for meritd commands.
package config

import (
	"os"
	"time"
)

// Config holds settings shared by the meritd commands.
type Config struct {
	// DataFile is the bootstrap seed document (profiles + visits).
	DataFile string

	// RulesFile is the rule definition document loaded by replay.
	RulesFile string

	// JudgeEndpoint is the chat-completion URL of the judgment service.
	// Empty means judge conditions evaluate against the offline stub.
	JudgeEndpoint string

	// JudgeModel names the model the judgment service should use.
	JudgeModel string

	// JudgeTimeout bounds a single judgment call.
	JudgeTimeout time.Duration
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DataFile:     "./data.json",
		RulesFile:    "./rules.json",
		JudgeModel:   "gpt-4o-mini",
		JudgeTimeout: 10 * time.Second,
	}
}

// JudgeAPIKey reads the judgment service credential from the environment.
// Secrets are environment-only per 12-factor principles; config files with
// a judge API key are rejected by LoadConfig.
func JudgeAPIKey() string {
	return os.Getenv("MERITD_JUDGE_API_KEY")
}
