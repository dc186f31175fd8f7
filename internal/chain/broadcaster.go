package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"compasseval/internal/compass"
)

// Broadcaster submits signed transactions and reads receipts over JSON-RPC.
type Broadcaster struct {
	client *ethclient.Client
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Broadcaster, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return nil, errors.New("rpc url is required")
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Broadcaster{client: client}, nil
}

// DialFromEnv connects to RPC_URL.
func DialFromEnv(ctx context.Context) (*Broadcaster, error) {
	rpcURL := os.Getenv("RPC_URL")
	if strings.TrimSpace(rpcURL) == "" {
		return nil, errors.New("RPC_URL is required")
	}
	return Dial(ctx, rpcURL)
}

// Close releases the RPC connection.
func (b *Broadcaster) Close() {
	b.client.Close()
}

// ChainID reports the chain id of the connected node.
func (b *Broadcaster) ChainID(ctx context.Context) (*big.Int, error) {
	return b.client.ChainID(ctx)
}

// Send broadcasts a signed transaction and returns its hash.
func (b *Broadcaster) Send(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	if err := b.client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	return tx.Hash(), nil
}

// TransactionReceipt implements ReceiptSource.
func (b *Broadcaster) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return b.client.TransactionReceipt(ctx, hash)
}

// EstimateGas asks the node how much gas an unsigned transaction needs when sent from from.
func (b *Broadcaster) EstimateGas(ctx context.Context, from common.Address, unsigned compass.UnsignedTx) (uint64, error) {
	msg := ethereum.CallMsg{From: from, To: unsigned.To, Data: unsigned.Data}
	if unsigned.Value.IsSet() {
		msg.Value = unsigned.Value.Int
	}
	gas, err := b.client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("estimate gas: %w", err)
	}
	return gas, nil
}
