package cli

import (
	"fmt"
	"io"
	"time"

	"compasseval/internal/agent"
	"compasseval/internal/agent/call"
	"compasseval/internal/compass"
	"compasseval/internal/config"
	"compasseval/internal/logging"
	"compasseval/internal/runner"
)

// verboseOptions carries the verbose trace settings into the agent.
type verboseOptions struct {
	Verbose   bool
	Writer    io.Writer
	LogWriter io.Writer
	NoColor   bool
}

// buildAgent is a test seam for agent construction.
var buildAgent = newCompassAgent

// newCompassAgent wires the chat provider and the Compass tools into a runner agent.
func newCompassAgent(cfg config.Config, model string, verbose verboseOptions) (runner.Agent, error) {
	client, err := compass.ClientFromEnv(cfg.Compass.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("compass client: %w", err)
	}
	tools := compass.MergeTools(compass.DefaultTools(), toolsFromConfig(cfg.Compass.Tools))
	executor := compass.NewExecutor(client, tools, compass.ExecutorOptions{
		Defaults: compass.WalletDefaults(cfg.Compass.Chain, cfg.Compass.WalletAddress),
	})

	providerFactory := func(model string) (agent.Provider, error) {
		return agent.ProviderFromEnv(agent.ProviderOptions{
			Provider:    cfg.Agent.Provider,
			Model:       model,
			BaseURL:     cfg.Agent.BaseURL,
			Temperature: cfg.Agent.Temperature,
		})
	}
	// Fail before the run starts when the API key is missing.
	if _, err := providerFactory(model); err != nil {
		return nil, fmt.Errorf("model provider: %w", err)
	}

	adapter, err := runner.NewAgentAdapter(model, runner.AdapterOptions{
		Provider:      providerFactory,
		Executor:      executor,
		Tools:         compass.Definitions(tools),
		Instructions:  cfg.Agent.Instructions,
		Chain:         cfg.Compass.Chain,
		WalletAddress: cfg.Compass.WalletAddress,
		Limits: call.RunLimits{
			MaxSteps:   cfg.Agent.MaxSteps,
			MaxSeconds: time.Duration(cfg.Agent.MaxSeconds) * time.Second,
			MaxTokens:  cfg.Agent.MaxTokens,
		},
		Verbose:          verbose.Verbose,
		VerboseWriter:    verbose.Writer,
		VerboseLogWriter: verbose.LogWriter,
		NoColor:          verbose.NoColor,
		Logger:           logging.New("agent"),
	})
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

// toolsFromConfig converts configured tool overrides to Compass tools.
func toolsFromConfig(configured []config.ToolConfig) []compass.Tool {
	tools := make([]compass.Tool, 0, len(configured))
	for _, item := range configured {
		params := make([]compass.Param, 0, len(item.Params))
		for _, param := range item.Params {
			params = append(params, compass.Param{
				Name:        param.Name,
				Type:        param.Type,
				Description: param.Description,
				Required:    param.Required,
				Enum:        param.Enum,
			})
		}
		tools = append(tools, compass.Tool{
			Name:        item.Name,
			Description: item.Description,
			Method:      item.Method,
			Path:        item.Path,
			Params:      params,
		})
	}
	return tools
}
