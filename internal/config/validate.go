package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	supportedProviders  = map[string]struct{}{"openai": {}, "openrouter": {}}
	supportedLogFormats = map[string]struct{}{"text": {}, "json": {}}
	supportedLogLevels  = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "warning": {}, "error": {}}
	supportedUploaders  = map[string]struct{}{"minio": {}, "s3": {}}
	supportedParamTypes = map[string]struct{}{"string": {}, "integer": {}, "number": {}, "boolean": {}}
	supportedMethods    = map[string]struct{}{"GET": {}, "POST": {}}
)

// Validate checks a normalized config.
func Validate(cfg *Config) error {
	c := &issueCollector{}

	if cfg.Version != 1 {
		c.addf("version", "unsupported version %d", cfg.Version)
	}
	if !cfg.HasModel(cfg.DefaultModel) {
		c.addf("default_model", "unknown model %q", cfg.DefaultModel)
	}

	validateAgent(cfg.Agent, c)
	validateCompass(cfg.Compass, c)
	validateEval(cfg.Eval, c)
	validateUpload(cfg.Upload, c)
	validateLogging(cfg.Logging, c)
	validateChain(cfg.Chain, c)

	return c.result()
}

func validateAgent(agent AgentConfig, c *issueCollector) {
	if _, ok := supportedProviders[agent.Provider]; !ok {
		c.addf("agent.provider", "unsupported provider %q", agent.Provider)
	}
	if agent.BaseURL != "" {
		validateURL("agent.base_url", agent.BaseURL, c)
	}
	if agent.MaxSteps < 0 {
		c.add("agent.max_steps", "must be >= 0")
	}
	if agent.MaxSeconds < 0 {
		c.add("agent.max_seconds", "must be >= 0")
	}
	if agent.MaxTokens < 0 {
		c.add("agent.max_tokens", "must be >= 0")
	}
	if agent.Temperature < 0 || agent.Temperature > 2 {
		c.add("agent.temperature", "must be between 0 and 2")
	}
}

func validateCompass(compass CompassConfig, c *issueCollector) {
	validateURL("compass.base_url", compass.BaseURL, c)

	names := map[string]struct{}{}
	for i, tool := range compass.Tools {
		prefix := fmt.Sprintf("compass.tools[%d]", i)
		if tool.Name == "" {
			c.add(prefix+".name", "is required")
		} else if _, exists := names[tool.Name]; exists {
			c.addf(prefix+".name", "duplicate tool %q", tool.Name)
		} else {
			names[tool.Name] = struct{}{}
		}
		if _, ok := supportedMethods[tool.Method]; !ok {
			c.addf(prefix+".method", "unsupported method %q", tool.Method)
		}
		if !strings.HasPrefix(tool.Path, "/") {
			c.add(prefix+".path", "must start with /")
		}
		for j, param := range tool.Params {
			paramPrefix := fmt.Sprintf("%s.params[%d]", prefix, j)
			if param.Name == "" {
				c.add(paramPrefix+".name", "is required")
			}
			if _, ok := supportedParamTypes[param.Type]; !ok {
				c.addf(paramPrefix+".type", "unsupported type %q", param.Type)
			}
		}
	}
}

func validateEval(eval EvalConfig, c *issueCollector) {
	if eval.Threshold != nil && !(*eval.Threshold >= 0 && *eval.Threshold <= 1) {
		c.add("eval.threshold", "must be between 0 and 1")
	}
	if eval.Concurrency < 1 {
		c.add("eval.concurrency", "must be >= 1")
	}
	if eval.CaseTimeoutSeconds < 1 {
		c.add("eval.case_timeout_seconds", "must be >= 1")
	}
}

func validateUpload(upload UploadConfig, c *issueCollector) {
	if upload.Provider == "" {
		return
	}
	if _, ok := supportedUploaders[upload.Provider]; !ok {
		c.addf("upload.provider", "unsupported provider %q", upload.Provider)
	}
	if strings.TrimSpace(upload.Endpoint) == "" {
		c.add("upload.endpoint", "is required when upload.provider is set")
	}
	if strings.TrimSpace(upload.Bucket) == "" {
		c.add("upload.bucket", "is required when upload.provider is set")
	}
}

func validateLogging(logging LoggingConfig, c *issueCollector) {
	if _, ok := supportedLogLevels[logging.Level]; !ok {
		c.addf("logging.level", "unsupported level %q", logging.Level)
	}
	if _, ok := supportedLogFormats[logging.Format]; !ok {
		c.addf("logging.format", "unsupported format %q", logging.Format)
	}
}

func validateChain(chain ChainConfig, c *issueCollector) {
	if chain.ChainID < 0 {
		c.add("chain.chain_id", "must be >= 0")
	}
	if chain.PollInitialMillis < 1 {
		c.add("chain.poll_initial_ms", "must be >= 1")
	}
	if chain.PollMaxMillis < chain.PollInitialMillis {
		c.add("chain.poll_max_ms", "must be >= chain.poll_initial_ms")
	}
	if chain.PollMultiplier < 1 {
		c.add("chain.poll_multiplier", "must be >= 1")
	}
	if chain.PollMaxAttempts < 1 {
		c.add("chain.poll_max_attempts", "must be >= 1")
	}
}

func validateURL(field, value string, c *issueCollector) {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		c.addf(field, "invalid URL %q", value)
	}
}
