package agent

import "encoding/json"

// HistoryContent represents a single typed content item in a turn.
type HistoryContent interface {
	// textLen is the character count the item contributes to a prompt.
	textLen() int
}

// HistoryText holds plain text content for a history item.
type HistoryText struct {
	Text string
}

func (t HistoryText) textLen() int { return len(t.Text) }

func (c ToolCall) textLen() int {
	raw, err := json.Marshal(c.Args)
	if err != nil || c.Args == nil {
		raw = []byte("{}")
	}
	return len(c.Name) + len(raw)
}

func (o ToolOutput) textLen() int { return len(o.Result.Output) }

// HistoryItem captures a single turn item with a role and typed content.
type HistoryItem struct {
	Role    string
	Content HistoryContent
}

// ToolNames returns the names of tool calls in history order.
func ToolNames(history []HistoryItem) []string {
	names := make([]string, 0)
	for _, item := range history {
		if call, ok := item.Content.(ToolCall); ok {
			names = append(names, call.Name)
		}
	}
	return names
}

// ApproxTokenCount estimates prompt size at four characters per token, rounded up.
func ApproxTokenCount(history []HistoryItem) int {
	chars := 0
	for _, item := range history {
		if item.Content != nil {
			chars += item.Content.textLen()
		}
	}
	return (chars + 3) / 4
}
