package compass

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"compasseval/internal/agent"
	"compasseval/internal/testutil"
)

func newTestExecutor(t *testing.T, responses map[string]any, opts ExecutorOptions) (*Executor, *testutil.CompassServer) {
	t.Helper()
	server := testutil.NewCompassServer(t, responses)
	client, err := NewClient(server.URL, "k", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewExecutor(client, DefaultTools(), opts), server
}

func args(t *testing.T, raw string) agent.ToolCallArgs {
	t.Helper()
	var parsed agent.ToolCallArgs
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("parse args: %v", err)
	}
	return parsed
}

func TestExecutorCallsEndpointWithDefaults(t *testing.T) {
	executor, server := newTestExecutor(t, map[string]any{
		"/v0/token/balance/get": map[string]any{"amount": "1.5"},
	}, ExecutorOptions{Defaults: WalletDefaults("ethereum:mainnet", "0xabc")})

	result := executor.Execute(testutil.Context(t, 2*time.Second), agent.ToolCall{
		ID: "1", Name: "get_token_balance", Args: args(t, `{"token":"USDC"}`),
	})
	if result.Error != "" {
		t.Fatalf("unexpected error %q", result.Error)
	}
	if !strings.Contains(result.Output, `"amount":"1.5"`) {
		t.Fatalf("unexpected output %q", result.Output)
	}
	query, err := url.ParseQuery(server.Requests()[0].Query)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	if query.Get("chain") != "ethereum:mainnet" || query.Get("user") != "0xabc" || query.Get("token") != "USDC" {
		t.Fatalf("unexpected query %v", query)
	}
}

func TestExecutorRejectsMissingRequiredArgument(t *testing.T) {
	executor, server := newTestExecutor(t, nil, ExecutorOptions{})

	result := executor.Execute(testutil.Context(t, 2*time.Second), agent.ToolCall{Name: "get_token_price"})
	if result.Error != "token is required" {
		t.Fatalf("unexpected error %q", result.Error)
	}
	if len(server.Requests()) != 0 {
		t.Fatalf("expected no request to be sent")
	}
}

func TestExecutorRejectsUnknownToolAndArgs(t *testing.T) {
	executor, _ := newTestExecutor(t, nil, ExecutorOptions{})
	ctx := testutil.Context(t, 2*time.Second)

	if result := executor.Execute(ctx, agent.ToolCall{Name: "transfer_all"}); !strings.Contains(result.Error, "unknown tool") {
		t.Fatalf("expected unknown tool error, got %q", result.Error)
	}
	result := executor.Execute(ctx, agent.ToolCall{Name: "get_token_price", Args: args(t, `{"token":"WETH","slippage":1}`)})
	if !strings.Contains(result.Error, "unknown argument") {
		t.Fatalf("expected unknown argument error, got %q", result.Error)
	}
}

func TestExecutorValidatesTypesAndEnums(t *testing.T) {
	executor, _ := newTestExecutor(t, nil, ExecutorOptions{})
	ctx := testutil.Context(t, 2*time.Second)

	result := executor.Execute(ctx, agent.ToolCall{Name: "get_uniswap_quote", Args: args(t, `{"token_in":"WETH","token_out":"USDC","amount_in":"lots"}`)})
	if result.Error != "amount_in must be a number" {
		t.Fatalf("unexpected error %q", result.Error)
	}
	result = executor.Execute(ctx, agent.ToolCall{Name: "get_uniswap_quote", Args: args(t, `{"token_in":"WETH","token_out":"USDC","amount_in":1,"fee":"2"}`)})
	if !strings.Contains(result.Error, "fee must be one of") {
		t.Fatalf("unexpected error %q", result.Error)
	}
}

func TestExecutorReportsAPIErrorsAsToolErrors(t *testing.T) {
	executor, _ := newTestExecutor(t, nil, ExecutorOptions{})

	result := executor.Execute(testutil.Context(t, 2*time.Second), agent.ToolCall{Name: "get_morpho_markets"})
	if !strings.Contains(result.Error, "status 404") {
		t.Fatalf("expected API error in result, got %q", result.Error)
	}
	if !strings.HasPrefix(result.Output, "error: ") {
		t.Fatalf("expected error output, got %q", result.Output)
	}
}

func TestExecutorTruncatesLargeOutput(t *testing.T) {
	executor, _ := newTestExecutor(t, map[string]any{
		"/v0/morpho/markets": map[string]any{"markets": strings.Repeat("x", 200)},
	}, ExecutorOptions{MaxOutputBytes: 50})

	result := executor.Execute(testutil.Context(t, 2*time.Second), agent.ToolCall{Name: "get_morpho_markets"})
	if !result.Truncated || len(result.Output) != 50 || result.OutputBytes <= 50 {
		t.Fatalf("unexpected truncation %+v", result)
	}
}

func TestExecutorTruncatesOnRuneBoundary(t *testing.T) {
	// {"markets":" is 12 bytes, so byte 51 falls inside a two-byte rune.
	executor, _ := newTestExecutor(t, map[string]any{
		"/v0/morpho/markets": map[string]any{"markets": strings.Repeat("é", 100)},
	}, ExecutorOptions{MaxOutputBytes: 51})

	result := executor.Execute(testutil.Context(t, 2*time.Second), agent.ToolCall{Name: "get_morpho_markets"})
	if !result.Truncated || len(result.Output) != 50 {
		t.Fatalf("expected cut back to 50 bytes, got %d", len(result.Output))
	}
	if !utf8.ValidString(result.Output) {
		t.Fatalf("truncated output is not valid UTF-8: %q", result.Output)
	}
}

func TestTruncateUTF8(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{in: "abc", limit: 5, want: "abc"},
		{in: "abcdef", limit: 3, want: "abc"},
		{in: "a€b", limit: 2, want: "a"},
		{in: "a€b", limit: 4, want: "a€"},
		{in: "€", limit: 0, want: ""},
	}
	for _, tc := range cases {
		if got := truncateUTF8(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncateUTF8(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestExecutorPostSendsTypedBody(t *testing.T) {
	server := testutil.NewCompassServer(t, map[string]any{"/v0/custom": map[string]any{"ok": true}})
	client, err := NewClient(server.URL, "k", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	tools := []Tool{{Name: "custom", Method: "POST", Path: "/v0/custom", Params: []Param{
		{Name: "amount", Type: "number", Required: true},
		{Name: "note", Type: "string"},
	}}}
	executor := NewExecutor(client, tools, ExecutorOptions{})

	result := executor.Execute(testutil.Context(t, 2*time.Second), agent.ToolCall{Name: "custom", Args: args(t, `{"amount":"2.5"}`)})
	if result.Error != "" {
		t.Fatalf("unexpected error %q", result.Error)
	}
	if body := server.Requests()[0].Body; body != `{"amount":2.5}` {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestMergeToolsAndDefinitions(t *testing.T) {
	tools := MergeTools(DefaultTools(), []Tool{
		{Name: "get_token_price", Method: "GET", Path: "/v1/token/price"},
		{Name: "get_vault", Method: "GET", Path: "/v0/morpho/vault", Params: []Param{{Name: "vault_address", Type: "string", Required: true}}},
	})
	if len(tools) != len(DefaultTools())+1 {
		t.Fatalf("expected one appended tool, got %d", len(tools))
	}
	if tools[1].Path != "/v1/token/price" {
		t.Fatalf("expected override to replace in place, got %+v", tools[1])
	}

	defs := Definitions(tools)
	last := defs[len(defs)-1]
	if last.Name != "get_vault" || last.Parameters == nil || len(last.Parameters.Required) != 1 {
		t.Fatalf("unexpected definition %+v", last)
	}
	if last.Parameters.AdditionalProperties == nil || *last.Parameters.AdditionalProperties {
		t.Fatalf("expected closed schema")
	}
}
