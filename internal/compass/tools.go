package compass

import (
	"net/http"

	"compasseval/internal/agent"
)

// Param declares one tool argument.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// Tool maps an agent tool onto a Compass endpoint.
// GET tools send arguments as query parameters; POST tools send a JSON body.
type Tool struct {
	Name        string
	Description string
	Method      string
	Path        string
	Params      []Param
}

var chainParam = Param{Name: "chain", Type: "string", Description: "Chain identifier, for example ethereum:mainnet or base:mainnet."}

// DefaultTools is the read-only catalog exposed to the agent.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        "get_token_balance",
			Description: "Get the balance of a token held by a wallet.",
			Method:      http.MethodGet,
			Path:        "/v0/token/balance/get",
			Params: []Param{
				chainParam,
				{Name: "user", Type: "string", Description: "Wallet address. Defaults to the configured wallet."},
				{Name: "token", Type: "string", Description: "Token symbol or address.", Required: true},
			},
		},
		{
			Name:        "get_token_price",
			Description: "Get the USD price of a token.",
			Method:      http.MethodGet,
			Path:        "/v0/token/price/get",
			Params: []Param{
				chainParam,
				{Name: "token", Type: "string", Description: "Token symbol or address.", Required: true},
			},
		},
		{
			Name:        "get_portfolio",
			Description: "List the token balances and their USD value for a wallet.",
			Method:      http.MethodGet,
			Path:        "/v0/generic/portfolio/get",
			Params: []Param{
				chainParam,
				{Name: "user", Type: "string", Description: "Wallet address. Defaults to the configured wallet."},
			},
		},
		{
			Name:        "get_morpho_markets",
			Description: "List Morpho lending markets with their rates.",
			Method:      http.MethodGet,
			Path:        "/v0/morpho/markets",
			Params: []Param{
				chainParam,
				{Name: "collateral_token", Type: "string", Description: "Filter by collateral token symbol."},
				{Name: "loan_token", Type: "string", Description: "Filter by loan token symbol."},
			},
		},
		{
			Name:        "get_earn_vaults",
			Description: "List earn vaults with APY and TVL.",
			Method:      http.MethodGet,
			Path:        "/v2/earn/vaults",
			Params: []Param{
				chainParam,
				{Name: "asset_symbol", Type: "string", Description: "Filter by underlying asset symbol."},
			},
		},
		{
			Name:        "get_earn_positions",
			Description: "List a wallet's positions in earn vaults.",
			Method:      http.MethodGet,
			Path:        "/v2/earn/positions",
			Params: []Param{
				chainParam,
				{Name: "owner", Type: "string", Description: "Wallet address. Defaults to the configured wallet."},
			},
		},
		{
			Name:        "get_uniswap_quote",
			Description: "Quote a Uniswap swap selling an exact amount of one token for another.",
			Method:      http.MethodGet,
			Path:        "/v0/uniswap/quote/sell_exactly/get",
			Params: []Param{
				chainParam,
				{Name: "token_in", Type: "string", Description: "Token being sold.", Required: true},
				{Name: "token_out", Type: "string", Description: "Token being bought.", Required: true},
				{Name: "amount_in", Type: "number", Description: "Amount of token_in to sell.", Required: true},
				{Name: "fee", Type: "string", Description: "Pool fee tier.", Enum: []string{"0.01", "0.05", "0.3", "1.0"}},
			},
		},
	}
}

// MergeTools returns base with overrides applied by name. New tools are appended.
func MergeTools(base, overrides []Tool) []Tool {
	merged := append([]Tool(nil), base...)
	index := make(map[string]int, len(merged))
	for i, tool := range merged {
		index[tool.Name] = i
	}
	for _, tool := range overrides {
		if i, ok := index[tool.Name]; ok {
			merged[i] = tool
			continue
		}
		index[tool.Name] = len(merged)
		merged = append(merged, tool)
	}
	return merged
}

// Definitions converts tools into the agent's tool definitions.
func Definitions(tools []Tool) []agent.ToolDefinition {
	defs := make([]agent.ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		var params agent.ObjectBuilder
		for _, param := range tool.Params {
			params.Field(param.Name, param.Type, param.Description, param.Required, param.Enum...)
		}
		defs = append(defs, agent.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params.Closed(),
		})
	}
	return defs
}
