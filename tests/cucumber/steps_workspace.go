//go:build cucumber

package cucumber

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"compasseval/internal/config"
	"compasseval/internal/testutil"
)

const sampleDataset = `tests:
  - question: "What is the price of WETH?"
    answer: "WETH trades at 3000 USD."
    trajectory: ["get_token_price"]
  - question: "How much USDC does my wallet hold?"
    answer: "You hold 100 USDC."
    trajectory: ["get_token_balance"]
  - question: "Quote 1 WETH for USDC on Uniswap."
    answer: "Selling 1 WETH returns about 3000 USDC."
    trajectory: ["get_token_price", "get_uniswap_quote"]
`

// toolArgs are the arguments the fake model sends with each tool.
var toolArgs = map[string]string{
	"get_token_price":   `{"token":"WETH"}`,
	"get_token_balance": `{"token":"USDC"}`,
	"get_uniswap_quote": `{"token_in":"WETH","token_out":"USDC","amount_in":1}`,
}

// aWorkspaceWithTheSampleDataset creates a temp dir with the dataset and enters it.
func (s *featureState) aWorkspaceWithTheSampleDataset() error {
	dir, err := os.MkdirTemp("", "compasseval-feature-*")
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	s.workDir = dir
	if err := os.WriteFile(filepath.Join(dir, "dataset.yml"), []byte(sampleDataset), 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working dir: %w", err)
	}
	s.previousWD = wd
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("chdir: %w", err)
	}
	return s.writeConfig()
}

// aFakeCompassAPI starts a Compass API that answers every read tool.
func (s *featureState) aFakeCompassAPI() error {
	s.compass = testutil.NewCompassServer(s.t, map[string]any{
		"/v0/token/price/get":                map[string]any{"price": "3000.00"},
		"/v0/token/balance/get":              map[string]any{"amount": "100", "symbol": "USDC"},
		"/v0/generic/portfolio/get":          map[string]any{"total_value_in_usd": "3100.00"},
		"/v0/uniswap/quote/sell_exactly/get": map[string]any{"amount_out": "2998.51"},
	})
	return s.writeConfig()
}

// credentialsAreAvailable stubs the API keys the agent needs.
func (s *featureState) credentialsAreAvailable() error {
	for key, value := range map[string]string{
		"OPENAI_API_KEY":   "test-key",
		"COMPASS_API_KEY":  "compass-key",
		"COMPASS_BASE_URL": "",
	} {
		if err := s.setEnv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// theModelCallsTheseTools scripts the fake model from a question/tools table.
func (s *featureState) theModelCallsTheseTools(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected question and tools columns in row %d", i)
		}
		question := strings.TrimSpace(row.Cells[0].Value)
		var tools []string
		for _, name := range strings.Split(row.Cells[1].Value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				tools = append(tools, name)
			}
		}
		s.scripts[question] = testutil.ChatScript{Tools: tools, Args: toolArgs, Answer: "Done."}
	}
	s.chat = testutil.NewChatServer(s.t, s.scripts)
	return s.writeConfig()
}

// writeConfig points the workspace config at the fake servers started so far.
func (s *featureState) writeConfig() error {
	if s.workDir == "" {
		return fmt.Errorf("workspace is not set")
	}
	var b strings.Builder
	b.WriteString("version: 1\n")
	b.WriteString("agent:\n  provider: openai\n  max_steps: 10\n")
	if s.chat != nil {
		fmt.Fprintf(&b, "  base_url: %s\n", s.chat.URL)
	}
	b.WriteString("compass:\n  chain: ethereum:mainnet\n  wallet_address: \"0x00000000000000000000000000000000000000aa\"\n")
	if s.compass != nil {
		fmt.Fprintf(&b, "  base_url: %s\n", s.compass.URL)
	}
	b.WriteString("eval:\n  concurrency: 2\n  case_timeout_seconds: 30\n")
	b.WriteString("logging:\n  level: warn\n")
	path := filepath.Join(s.workDir, config.ConfigFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
