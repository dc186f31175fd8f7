package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const exampleFixture = `# Each case pairs a question with the tool calls a correct agent makes, in order.
tests:
  - question: "What is the current price of WETH in USD?"
    answer: "WETH trades at about 3000 USD."
    trajectory: ["get_token_price"]
  - question: "How much USDC does my wallet hold?"
    answer: "Your wallet holds 100 USDC."
    trajectory: ["get_token_balance"]
  - question: "What is my portfolio worth, and what is WETH trading at?"
    answer: "Your portfolio is worth 10 USD and WETH trades at about 3000 USD."
    trajectory: ["get_portfolio", "get_token_price"]
  - question: "Which Morpho vaults accept USDC deposits?"
    answer: "The listed USDC vaults accept deposits."
    trajectory: ["get_earn_vaults"]
`

// WriteExample writes a small starter fixture. An existing file is left alone.
func WriteExample(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("dataset file already exists at %q", path)
	}
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	if _, err := file.WriteString(exampleFixture); err != nil {
		_ = file.Close()
		return fmt.Errorf("write dataset file: %w", err)
	}
	return file.Close()
}
