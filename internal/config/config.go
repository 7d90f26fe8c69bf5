package config

import "fmt"

// Config represents the main rocbridge configuration
type Config struct {
	// Agent identifies the managed agent this bridge talks to
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Runtime is the agent runtime endpoint
	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`

	// ActionGroup is the function group registered for return of control
	ActionGroup ActionGroupConfig `json:"action_group" mapstructure:"action_group"`

	// Answer selects the chunk accumulation policy
	Answer AnswerConfig `json:"answer" mapstructure:"answer"`

	// Trace asks the runtime for trace events
	Trace bool `json:"trace" mapstructure:"trace"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AgentConfig identifies the remote agent and its alias
type AgentConfig struct {
	ID      string `json:"id" mapstructure:"id"`
	AliasID string `json:"alias_id" mapstructure:"alias_id"`
}

// RuntimeConfig holds agent runtime connection settings
type RuntimeConfig struct {
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// ActionGroupConfig names the registered function group
type ActionGroupConfig struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
}

// AnswerConfig holds answer assembly policy
type AnswerConfig struct {
	// Mode is "last" (keep the most recent chunk) or "concat"
	Mode string `json:"mode" mapstructure:"mode"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ActionGroup: ActionGroupConfig{
			Name:        "mcp_tools",
			Description: "Tools bridged from the local tool server",
		},
		Answer: AnswerConfig{
			Mode: "last",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Validate checks the configuration for startup
func (c *Config) Validate() error {
	if c.Agent.ID == "" {
		return fmt.Errorf("agent.id is required")
	}
	if c.Agent.AliasID == "" {
		return fmt.Errorf("agent.alias_id is required")
	}
	if c.Runtime.Endpoint == "" {
		return fmt.Errorf("runtime.endpoint is required")
	}
	if c.Answer.Mode != "last" && c.Answer.Mode != "concat" {
		return fmt.Errorf("answer.mode must be \"last\" or \"concat\", got %q", c.Answer.Mode)
	}
	return nil
}
