package config

// Config is the decoded .compasseval.yml file.
type Config struct {
	Version      int           `yaml:"version"`
	Models       []string      `yaml:"models"`
	DefaultModel string        `yaml:"default_model"`
	Agent        AgentConfig   `yaml:"agent"`
	Compass      CompassConfig `yaml:"compass"`
	Eval         EvalConfig    `yaml:"eval"`
	Store        StoreConfig   `yaml:"store"`
	Upload       UploadConfig  `yaml:"upload"`
	Logging      LoggingConfig `yaml:"logging"`
	Chain        ChainConfig   `yaml:"chain"`
}

// AgentConfig controls the LLM provider and per-case budgets.
type AgentConfig struct {
	Provider     string  `yaml:"provider"`
	BaseURL      string  `yaml:"base_url"`
	MaxSteps     int     `yaml:"max_steps"`
	MaxSeconds   int     `yaml:"max_seconds"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	Instructions string  `yaml:"instructions"`
}

// CompassConfig points the agent tools at the Compass API.
type CompassConfig struct {
	BaseURL       string       `yaml:"base_url"`
	Chain         string       `yaml:"chain"`
	WalletAddress string       `yaml:"wallet_address"`
	Tools         []ToolConfig `yaml:"tools"`
}

// ToolConfig adds or overrides an agent tool backed by a Compass endpoint.
type ToolConfig struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Method      string            `yaml:"method"`
	Path        string            `yaml:"path"`
	Params      []ToolParamConfig `yaml:"params"`
}

// ToolParamConfig declares one tool argument.
type ToolParamConfig struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required"`
	Enum        []string `yaml:"enum"`
}

// EvalConfig holds evaluation run defaults.
type EvalConfig struct {
	Threshold          *float64 `yaml:"threshold"`
	Concurrency        int      `yaml:"concurrency"`
	CaseTimeoutSeconds int      `yaml:"case_timeout_seconds"`
	OutputDir          string   `yaml:"output_dir"`
}

// StoreConfig locates the DuckDB results registry.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// UploadConfig configures artifact upload after a run.
type UploadConfig struct {
	Provider string `yaml:"provider"`
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Secure   bool   `yaml:"secure"`
}

// LoggingConfig configures structured logs.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChainConfig configures transaction signing and receipt polling.
type ChainConfig struct {
	ChainID           int64   `yaml:"chain_id"`
	PollInitialMillis int     `yaml:"poll_initial_ms"`
	PollMaxMillis     int     `yaml:"poll_max_ms"`
	PollMultiplier    float64 `yaml:"poll_multiplier"`
	PollMaxAttempts   int     `yaml:"poll_max_attempts"`
}
