package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// GasCostWei is gas used times the effective gas price.
func GasCostWei(receipt *types.Receipt) *big.Int {
	if receipt == nil || receipt.EffectiveGasPrice == nil {
		return big.NewInt(0)
	}
	used := new(big.Int).SetUint64(receipt.GasUsed)
	return used.Mul(used, receipt.EffectiveGasPrice)
}

// FormatEther renders a wei amount in ether with up to 18 decimals and no trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}

// FormatGasCost renders the fee paid by a receipt in ether.
func FormatGasCost(receipt *types.Receipt) string {
	return FormatEther(GasCostWei(receipt))
}
