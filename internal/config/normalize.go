package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultThreshold          = 0.9
	DefaultConcurrency        = 10
	DefaultCaseTimeoutSeconds = 120
	DefaultMaxSteps           = 25
	DefaultProvider           = "openai"
	DefaultCompassURL         = "https://api.compasslabs.ai"
	DefaultChain              = "ethereum"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultPollInitialMillis  = 1000
	DefaultPollMaxMillis      = 15000
	DefaultPollMultiplier     = 2.0
	DefaultPollMaxAttempts    = 20
)

// SupportedModels lists the models a run may select without extra configuration.
var SupportedModels = []string{"gpt-4o-mini", "gpt-4o-2024-11-20", "gpt-4o"}

// Normalize trims values and fills defaults in place.
func Normalize(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	cfg.Models = mergeModels(SupportedModels, cfg.Models)
	cfg.DefaultModel = strings.TrimSpace(cfg.DefaultModel)
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = SupportedModels[0]
	}

	cfg.Agent.Provider = strings.ToLower(strings.TrimSpace(cfg.Agent.Provider))
	if cfg.Agent.Provider == "" {
		cfg.Agent.Provider = DefaultProvider
	}
	cfg.Agent.BaseURL = strings.TrimSpace(cfg.Agent.BaseURL)
	if cfg.Agent.MaxSteps == 0 {
		cfg.Agent.MaxSteps = DefaultMaxSteps
	}

	cfg.Compass.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Compass.BaseURL), "/")
	if cfg.Compass.BaseURL == "" {
		cfg.Compass.BaseURL = DefaultCompassURL
	}
	cfg.Compass.Chain = strings.TrimSpace(cfg.Compass.Chain)
	if cfg.Compass.Chain == "" {
		cfg.Compass.Chain = DefaultChain
	}
	cfg.Compass.WalletAddress = strings.TrimSpace(cfg.Compass.WalletAddress)
	for i := range cfg.Compass.Tools {
		tool := &cfg.Compass.Tools[i]
		tool.Name = strings.TrimSpace(tool.Name)
		tool.Method = strings.ToUpper(strings.TrimSpace(tool.Method))
		if tool.Method == "" {
			tool.Method = "GET"
		}
		tool.Path = strings.TrimSpace(tool.Path)
		for j := range tool.Params {
			tool.Params[j].Name = strings.TrimSpace(tool.Params[j].Name)
			if strings.TrimSpace(tool.Params[j].Type) == "" {
				tool.Params[j].Type = "string"
			}
		}
	}

	if cfg.Eval.Threshold == nil {
		threshold := DefaultThreshold
		cfg.Eval.Threshold = &threshold
	}
	if cfg.Eval.Concurrency == 0 {
		cfg.Eval.Concurrency = DefaultConcurrency
	}
	if cfg.Eval.CaseTimeoutSeconds == 0 {
		cfg.Eval.CaseTimeoutSeconds = DefaultCaseTimeoutSeconds
	}
	cfg.Eval.OutputDir = strings.TrimSpace(cfg.Eval.OutputDir)
	if cfg.Eval.OutputDir == "" {
		cfg.Eval.OutputDir = DefaultOutputDir
	}

	cfg.Store.Path = strings.TrimSpace(cfg.Store.Path)
	cfg.Upload.Provider = strings.ToLower(strings.TrimSpace(cfg.Upload.Provider))
	cfg.Upload.Prefix = strings.Trim(strings.TrimSpace(cfg.Upload.Prefix), "/")

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Chain.PollInitialMillis == 0 {
		cfg.Chain.PollInitialMillis = DefaultPollInitialMillis
	}
	if cfg.Chain.PollMaxMillis == 0 {
		cfg.Chain.PollMaxMillis = DefaultPollMaxMillis
	}
	if cfg.Chain.PollMultiplier == 0 {
		cfg.Chain.PollMultiplier = DefaultPollMultiplier
	}
	if cfg.Chain.PollMaxAttempts == 0 {
		cfg.Chain.PollMaxAttempts = DefaultPollMaxAttempts
	}
}

func mergeModels(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, model := range list {
			model = strings.TrimSpace(model)
			if model == "" {
				continue
			}
			if _, ok := seen[model]; ok {
				continue
			}
			seen[model] = struct{}{}
			merged = append(merged, model)
		}
	}
	return merged
}

// HasModel reports whether the model is in the configured set.
func (cfg Config) HasModel(model string) bool {
	for _, candidate := range cfg.Models {
		if candidate == model {
			return true
		}
	}
	return false
}

// ThresholdValue returns the configured threshold or the default.
func (cfg Config) ThresholdValue() float64 {
	if cfg.Eval.Threshold == nil {
		return DefaultThreshold
	}
	return *cfg.Eval.Threshold
}
