package config

import (
	"fmt"
	"os"
)

const defaultConfig = `version: 1
default_model: gpt-4o-mini

agent:
  provider: openai
  max_steps: 25
  max_seconds: 120
  instructions: >
    You are a DeFi assistant. Answer questions about tokens, prices and
    positions by calling the Compass tools. Call only the tools you need.

compass:
  base_url: https://api.compasslabs.ai
  chain: ethereum

eval:
  threshold: 0.9
  concurrency: 10
  case_timeout_seconds: 120
  output_dir: .compasseval/results

store:
  path: .compasseval/results.duckdb

logging:
  level: info
  format: text

chain:
  chain_id: 1
`

// Scaffold writes a starter config file. It refuses to overwrite an existing file.
func Scaffold(path string) error {
	if path == "" {
		return fmt.Errorf("config path is required")
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("config path %q is a directory", path)
		}
		return fmt.Errorf("config file already exists at %q", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
