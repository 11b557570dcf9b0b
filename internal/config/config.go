// Package config provides configuration loading for taskbotd.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. See Load for the precedence rules.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/taskbotd/internal/logging"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// Config holds the complete taskbotd configuration.
type Config struct {
	Server   ServerConfig        `koanf:"server"`
	Logging  logging.Config      `koanf:"logging"`
	Redis    session.RedisConfig `koanf:"redis"`
	Backends BackendsConfig      `koanf:"backends"`
	LLM      LLMConfig           `koanf:"llm"`
	QA       QAConfig            `koanf:"qa"`
	Enhance  EnhanceConfig       `koanf:"enhance"`
	Safety   SafetyConfig        `koanf:"safety"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// BackendsConfig holds endpoints and deadlines for the classifier-style
// backend services consumed over HTTP.
type BackendsConfig struct {
	// ClassifierURL serves domain classification, phase intent
	// classification, question classification and the dangerous-query check.
	ClassifierURL string `koanf:"classifier_url"`
	// SearcherURL serves taskmap search during planning.
	SearcherURL string `koanf:"searcher_url"`
	// QAURL serves the extractive QA engines (task QA, general QA).
	QAURL string `koanf:"qa_url"`
	// JokeURL serves the joke retriever.
	JokeURL string `koanf:"joke_url"`
	// CallTimeout bounds each classifier round trip.
	CallTimeout time.Duration `koanf:"call_timeout"`
}

// LLMConfig holds settings for the langchaingo-backed generation services.
type LLMConfig struct {
	// Model is the chat model name passed to the provider.
	Model string `koanf:"model"`
	// BaseURL overrides the provider endpoint, e.g. for a local server.
	BaseURL string `koanf:"base_url"`
	// RatePerSecond caps outbound generation calls.
	RatePerSecond float64 `koanf:"rate_per_second"`
	// Burst is the rate limiter burst size.
	Burst int `koanf:"burst"`
}

// QAConfig holds the answer aggregator budgets.
type QAConfig struct {
	// Budget is the global fan-out deadline for one question.
	Budget time.Duration `koanf:"budget"`
	// SubstitutionThreshold is the maximum wall time already spent under
	// which the substitution enrichment is still attempted.
	SubstitutionThreshold time.Duration `koanf:"substitution_threshold"`
}

// EnhanceConfig holds the background enrichment budgets.
type EnhanceConfig struct {
	// JobBudget is the hard wall-clock budget of a detached enrichment job.
	JobBudget time.Duration `koanf:"job_budget"`
}

// SafetyConfig holds wordlist locations for the safety checks.
type SafetyConfig struct {
	// WordlistDir contains privacy.txt, sensitivity.txt, offensive.txt and
	// suicide.txt. Empty means use the compiled-in lists.
	WordlistDir string `koanf:"wordlist_dir"`
	// Watch enables hot reload of the wordlist files.
	Watch bool `koanf:"watch"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: logging.DefaultConfig(),
		Redis: session.RedisConfig{
			Addr: "localhost:6379",
			TTL:  7 * 24 * time.Hour,
		},
		Backends: BackendsConfig{
			ClassifierURL: "http://localhost:8001",
			SearcherURL:   "http://localhost:8002",
			QAURL:         "http://localhost:8003",
			JokeURL:       "http://localhost:8001",
			CallTimeout:   1 * time.Second,
		},
		LLM: LLMConfig{
			Model:         "gpt-4o-mini",
			RatePerSecond: 5,
			Burst:         5,
		},
		QA: QAConfig{
			Budget:                1500 * time.Millisecond,
			SubstitutionThreshold: 1 * time.Second,
		},
		Enhance: EnhanceConfig{
			JobBudget: 60 * time.Second,
		},
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.Backends.CallTimeout <= 0 {
		errs = append(errs, errors.New("backends.call_timeout must be positive"))
	}
	if c.QA.Budget <= 0 {
		errs = append(errs, errors.New("qa.budget must be positive"))
	}
	if c.Enhance.JobBudget <= 0 {
		errs = append(errs, errors.New("enhance.job_budget must be positive"))
	}
	return errors.Join(errs...)
}
