// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for refinement service providers.
type Config struct {
	// RefinerHost is the base URL for the refinement service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	RefinerHost string

	// RefinerModel is the model identifier to use for query refinement.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	RefinerModel string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the refinement service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.RefinerHost = host
	}
}

// WithModel sets the refinement model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.RefinerModel = model
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		RefinerHost:  "http://localhost:11434/v1",
		RefinerModel: "qwen2.5:3b",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is
// required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.RefinerHost != "" && !strings.HasSuffix(c.RefinerHost, "/v1") {
		c.RefinerHost = strings.TrimSuffix(c.RefinerHost, "/")
		c.RefinerHost = c.RefinerHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.RefinerHost == "" {
		return errors.New("ai config: RefinerHost is required")
	}
	if c.RefinerModel == "" {
		return errors.New("ai config: RefinerModel is required")
	}
	return nil
}
