package compass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"compasseval/internal/agent"
)

// DefaultMaxOutputBytes bounds the tool output returned to the model.
const DefaultMaxOutputBytes = 16 * 1024

// Executor runs agent tool calls against the Compass API.
type Executor struct {
	client         *Client
	tools          map[string]Tool
	defaults       map[string]string
	maxOutputBytes int
	now            func() time.Time
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Defaults fill parameters the model omitted, keyed by parameter name.
	Defaults       map[string]string
	MaxOutputBytes int
}

// NewExecutor builds an executor over a fixed tool set.
func NewExecutor(client *Client, tools []Tool, opts ExecutorOptions) *Executor {
	byName := make(map[string]Tool, len(tools))
	for _, tool := range tools {
		byName[tool.Name] = tool
	}
	maxBytes := opts.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}
	return &Executor{client: client, tools: byName, defaults: opts.Defaults, maxOutputBytes: maxBytes, now: time.Now}
}

// WalletDefaults maps the configured chain and wallet onto the parameter names tools use.
func WalletDefaults(chain, wallet string) map[string]string {
	defaults := map[string]string{}
	if chain != "" {
		defaults["chain"] = chain
	}
	if wallet != "" {
		defaults["user"] = wallet
		defaults["owner"] = wallet
	}
	return defaults
}

// Execute validates arguments, calls the endpoint and returns its JSON body.
func (e *Executor) Execute(ctx context.Context, call agent.ToolCall) agent.ToolResult {
	if e.client == nil {
		return agent.ErrorResult(call.Name, "compass client is not configured")
	}
	tool, ok := e.tools[call.Name]
	if !ok {
		return agent.ErrorResult(call.Name, fmt.Sprintf("unknown tool %q", call.Name))
	}
	values, err := e.collectArgs(tool, call.Args)
	if err != nil {
		return agent.ErrorResult(call.Name, err.Error())
	}

	start := e.now()
	var body json.RawMessage
	switch tool.Method {
	case http.MethodPost:
		body, err = e.client.Post(ctx, tool.Path, postBody(tool, values))
	default:
		query := url.Values{}
		for name, value := range values {
			query.Set(name, value)
		}
		body, err = e.client.Get(ctx, tool.Path, query)
	}
	finished := e.now()
	if err != nil {
		result := agent.ErrorResult(call.Name, err.Error())
		result.StartedAt, result.FinishedAt, result.Duration = start, finished, finished.Sub(start)
		return result
	}

	output := string(body)
	truncated := false
	if len(output) > e.maxOutputBytes {
		output = truncateUTF8(output, e.maxOutputBytes)
		truncated = true
	}
	return agent.ToolResult{
		Tool:        call.Name,
		Output:      output,
		OutputBytes: len(body),
		Truncated:   truncated,
		StartedAt:   start,
		FinishedAt:  finished,
		Duration:    finished.Sub(start),
	}
}

func (e *Executor) collectArgs(tool Tool, args agent.ToolCallArgs) (map[string]string, error) {
	known := make(map[string]struct{}, len(tool.Params))
	values := make(map[string]string, len(tool.Params))
	for _, param := range tool.Params {
		known[param.Name] = struct{}{}
		value, present, err := args.Scalar(param.Name)
		if err != nil {
			return nil, err
		}
		if !present || value == "" {
			if fallback, ok := e.defaults[param.Name]; ok {
				value, present = fallback, true
			}
		}
		if !present || value == "" {
			if param.Required {
				return nil, fmt.Errorf("%s is required", param.Name)
			}
			continue
		}
		if err := checkParamType(param, value); err != nil {
			return nil, err
		}
		values[param.Name] = value
	}
	for name := range args {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown argument %q", name)
		}
	}
	return values, nil
}

func checkParamType(param Param, value string) error {
	switch param.Type {
	case "integer":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("%s must be an integer", param.Name)
		}
	case "number":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%s must be a number", param.Name)
		}
	case "boolean":
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be a boolean", param.Name)
		}
	}
	if len(param.Enum) == 0 {
		return nil
	}
	for _, allowed := range param.Enum {
		if allowed == value {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v", param.Name, param.Enum)
}

// postBody converts string values back into typed JSON fields.
func postBody(tool Tool, values map[string]string) map[string]any {
	body := make(map[string]any, len(values))
	for _, param := range tool.Params {
		value, ok := values[param.Name]
		if !ok {
			continue
		}
		switch param.Type {
		case "integer":
			parsed, _ := strconv.ParseInt(value, 10, 64)
			body[param.Name] = parsed
		case "number":
			parsed, _ := strconv.ParseFloat(value, 64)
			body[param.Name] = parsed
		case "boolean":
			parsed, _ := strconv.ParseBool(value)
			body[param.Name] = parsed
		default:
			body[param.Name] = value
		}
	}
	return body
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
