package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"compasseval/internal/compass"
)

// Signer signs Compass-built transactions with a local private key.
type Signer struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int
	address common.Address
}

// NewSigner parses a hex private key, with or without 0x prefix.
func NewSigner(hexKey string, chainID *big.Int) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("private key is required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("chain id must be positive")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{key: key, chainID: new(big.Int).Set(chainID), address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// SignerFromEnv reads PRIVATE_KEY.
func SignerFromEnv(chainID *big.Int) (*Signer, error) {
	key := os.Getenv("PRIVATE_KEY")
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("PRIVATE_KEY is required")
	}
	return NewSigner(key, chainID)
}

// Address is the account the signer signs for.
func (s *Signer) Address() common.Address {
	return s.address
}

// ChainID is the chain the signer signs for.
func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Sign converts an unsigned transaction and signs it. Fee caps select a
// dynamic-fee transaction; otherwise a legacy transaction is built.
func (s *Signer) Sign(unsigned compass.UnsignedTx) (*types.Transaction, error) {
	if unsigned.ChainID.IsSet() && unsigned.ChainID.Cmp(s.chainID) != 0 {
		return nil, fmt.Errorf("transaction chain id %s does not match signer chain id %s", unsigned.ChainID, s.chainID)
	}
	if unsigned.From != (common.Address{}) && unsigned.From != s.address {
		return nil, fmt.Errorf("transaction sender %s does not match signer %s", unsigned.From.Hex(), s.address.Hex())
	}
	tx, err := buildTx(unsigned, s.chainID)
	if err != nil {
		return nil, err
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

func buildTx(unsigned compass.UnsignedTx, chainID *big.Int) (*types.Transaction, error) {
	if !unsigned.Nonce.IsSet() {
		return nil, errors.New("transaction nonce is required")
	}
	if !unsigned.Gas.IsSet() {
		return nil, errors.New("transaction gas limit is required")
	}
	if !unsigned.Nonce.IsUint64() || !unsigned.Gas.IsUint64() {
		return nil, errors.New("transaction nonce or gas out of range")
	}
	value := big.NewInt(0)
	if unsigned.Value.IsSet() {
		value = unsigned.Value.Int
	}

	if unsigned.MaxFeePerGas.IsSet() {
		tip := big.NewInt(0)
		if unsigned.MaxPriorityFeePerGas.IsSet() {
			tip = unsigned.MaxPriorityFeePerGas.Int
		}
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     unsigned.Nonce.Uint64(),
			GasTipCap: tip,
			GasFeeCap: unsigned.MaxFeePerGas.Int,
			Gas:       unsigned.Gas.Uint64(),
			To:        unsigned.To,
			Value:     value,
			Data:      unsigned.Data,
		}), nil
	}
	if !unsigned.GasPrice.IsSet() {
		return nil, errors.New("transaction needs maxFeePerGas or gasPrice")
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    unsigned.Nonce.Uint64(),
		GasPrice: unsigned.GasPrice.Int,
		Gas:      unsigned.Gas.Uint64(),
		To:       unsigned.To,
		Value:    value,
		Data:     unsigned.Data,
	}), nil
}
