package call

import (
	"encoding/json"
	"fmt"
	"strings"

	"compasseval/internal/agent"
)

func formatPrompt(prompt agent.Prompt, toolOutputMaxLines int) string {
	var builder strings.Builder
	if strings.TrimSpace(prompt.Instructions) != "" {
		builder.WriteString("instructions:\n")
		builder.WriteString(prompt.Instructions)
		builder.WriteString("\n")
	}
	if len(prompt.Tools) > 0 {
		names := make([]string, 0, len(prompt.Tools))
		for _, tool := range prompt.Tools {
			names = append(names, tool.Name)
		}
		builder.WriteString("tools: ")
		builder.WriteString(strings.Join(names, ", "))
		builder.WriteString("\n")
	}
	if len(prompt.InputItems) > 0 {
		builder.WriteString("input_items:\n")
		for _, item := range prompt.InputItems {
			builder.WriteString(formatHistoryItem(item, toolOutputMaxLines))
		}
	}
	return strings.TrimRight(builder.String(), "\n")
}

func formatHistoryItem(item agent.HistoryItem, toolOutputMaxLines int) string {
	switch content := item.Content.(type) {
	case agent.HistoryText:
		return fmt.Sprintf("- %s: %s\n", item.Role, content.Text)
	case agent.ToolCall:
		return fmt.Sprintf("- %s: tool_call id=%s name=%s args=%s\n", item.Role, content.ID, content.Name, formatArgs(content.Args))
	case agent.ToolOutput:
		header := fmt.Sprintf("- %s: tool_output call_id=%s tool=%s bytes=%d truncated=%t error=%s\n", item.Role, content.ToolCallID, content.Result.Tool, content.Result.OutputBytes, content.Result.Truncated, content.Result.Error)
		output := limitOutputLines(strings.TrimRight(content.Result.Output, "\n"), toolOutputMaxLines)
		if output == "" {
			return header
		}
		return header + indentLines(output, "  ") + "\n"
	default:
		return fmt.Sprintf("- %s: %v\n", item.Role, content)
	}
}

func formatArgs(args agent.ToolCallArgs) string {
	if len(args) == 0 {
		return "{}"
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return "<invalid args>"
	}
	return string(payload)
}

func indentLines(value, prefix string) string {
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
