package compass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Quantity is an integer the API may encode as a JSON number, a decimal
// string, or a 0x-prefixed hex string.
type Quantity struct {
	*big.Int
}

// UnmarshalJSON accepts every encoding Compass uses for integers.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		q.Int = nil
		return nil
	}
	text := string(trimmed)
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		q.Int = nil
		return nil
	}
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		value, ok := new(big.Int).SetString(text[2:], 16)
		if !ok {
			return fmt.Errorf("invalid hex quantity %q", text)
		}
		q.Int = value
		return nil
	}
	value, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return fmt.Errorf("invalid quantity %q", text)
	}
	q.Int = value
	return nil
}

// MarshalJSON renders the quantity as a decimal string.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.Int == nil {
		return []byte("null"), nil
	}
	return json.Marshal(q.Int.String())
}

// IsSet reports whether a value was present.
func (q Quantity) IsSet() bool {
	return q.Int != nil
}

// UnsignedTx is a transaction built by Compass and ready to sign.
type UnsignedTx struct {
	ChainID              Quantity        `json:"chainId"`
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to"`
	Data                 hexutil.Bytes   `json:"data"`
	Value                Quantity        `json:"value"`
	Nonce                Quantity        `json:"nonce"`
	Gas                  Quantity        `json:"gas"`
	GasPrice             Quantity        `json:"gasPrice"`
	MaxFeePerGas         Quantity        `json:"maxFeePerGas"`
	MaxPriorityFeePerGas Quantity        `json:"maxPriorityFeePerGas"`
}

// DecodeUnsignedTx reads a transaction either wrapped in a "transaction"
// field or at the top level of the response.
func DecodeUnsignedTx(body []byte) (UnsignedTx, error) {
	var envelope struct {
		Transaction json.RawMessage `json:"transaction"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return UnsignedTx{}, fmt.Errorf("decode transaction response: %w", err)
	}
	raw := []byte(envelope.Transaction)
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = body
	}
	var tx UnsignedTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return UnsignedTx{}, fmt.Errorf("decode transaction: %w", err)
	}
	if tx.To == nil {
		return UnsignedTx{}, fmt.Errorf("decode transaction: missing to address")
	}
	return tx, nil
}

// BuildTransaction asks Compass to construct an unsigned transaction.
func (c *Client) BuildTransaction(ctx context.Context, path string, body any) (UnsignedTx, error) {
	raw, err := c.Post(ctx, path, body)
	if err != nil {
		return UnsignedTx{}, err
	}
	return DecodeUnsignedTx(raw)
}
