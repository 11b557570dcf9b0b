package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment variables read by Load.
const envPrefix = "TASKBOT_"

// Load loads configuration with the following precedence, highest first:
//
//  1. Environment variables (TASKBOT_SERVER_PORT, TASKBOT_REDIS_ADDR, ...)
//  2. YAML config file, if configPath is non-empty and the file exists
//  3. Built-in defaults
//
// Environment variables map to config keys by stripping the prefix,
// lowercasing, and replacing the first underscore with a dot:
//
//	TASKBOT_SERVER_PORT          -> server.port
//	TASKBOT_BACKENDS_QA_URL      -> backends.qa_url
//	TASKBOT_QA_BUDGET            -> qa.budget
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnv), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// transformEnv maps TASKBOT_SECTION_SOME_KEY to section.some_key. Only the
// first underscore becomes a section separator; the rest stay part of the
// field name, matching the koanf struct tags.
func transformEnv(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}
