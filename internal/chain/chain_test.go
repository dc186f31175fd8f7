package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"compasseval/internal/compass"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func quantity(v int64) compass.Quantity {
	return compass.Quantity{Int: big.NewInt(v)}
}

func unsignedTx() compass.UnsignedTx {
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	return compass.UnsignedTx{
		To:    &to,
		Data:  []byte{0x01, 0x02},
		Value: quantity(5),
		Nonce: quantity(7),
		Gas:   quantity(21000),
	}
}

func TestSignDynamicFeeTx(t *testing.T) {
	signer, err := NewSigner("0x"+testKey, big.NewInt(1))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	unsigned := unsignedTx()
	unsigned.MaxFeePerGas = quantity(30_000_000_000)
	unsigned.MaxPriorityFeePerGas = quantity(1_000_000_000)

	tx, err := signer.Sign(unsigned)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if tx.Type() != types.DynamicFeeTxType {
		t.Fatalf("expected dynamic fee tx, got type %d", tx.Type())
	}
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), tx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if sender != signer.Address() {
		t.Fatalf("expected sender %s, got %s", signer.Address().Hex(), sender.Hex())
	}
	if tx.Nonce() != 7 || tx.Gas() != 21000 || tx.Value().Int64() != 5 {
		t.Fatalf("unexpected tx fields: nonce=%d gas=%d value=%s", tx.Nonce(), tx.Gas(), tx.Value())
	}
}

func TestSignLegacyTx(t *testing.T) {
	signer, err := NewSigner(testKey, big.NewInt(8453))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	unsigned := unsignedTx()
	unsigned.GasPrice = quantity(2_000_000_000)

	tx, err := signer.Sign(unsigned)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if tx.Type() != types.LegacyTxType {
		t.Fatalf("expected legacy tx, got type %d", tx.Type())
	}
	if tx.ChainId().Int64() != 8453 {
		t.Fatalf("expected chain id 8453, got %s", tx.ChainId())
	}
}

func TestSignRejectsMismatches(t *testing.T) {
	signer, err := NewSigner(testKey, big.NewInt(1))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	wrongChain := unsignedTx()
	wrongChain.GasPrice = quantity(1)
	wrongChain.ChainID = quantity(10)
	if _, err := signer.Sign(wrongChain); err == nil {
		t.Fatalf("expected chain id mismatch error")
	}

	other, _ := crypto.GenerateKey()
	wrongSender := unsignedTx()
	wrongSender.GasPrice = quantity(1)
	wrongSender.From = crypto.PubkeyToAddress(other.PublicKey)
	if _, err := signer.Sign(wrongSender); err == nil {
		t.Fatalf("expected sender mismatch error")
	}

	noFees := unsignedTx()
	if _, err := signer.Sign(noFees); err == nil {
		t.Fatalf("expected missing fee error")
	}
}

func TestNewSignerRejectsBadInput(t *testing.T) {
	if _, err := NewSigner("", big.NewInt(1)); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := NewSigner("zz", big.NewInt(1)); err == nil {
		t.Fatalf("expected error for malformed key")
	}
	if _, err := NewSigner(testKey, big.NewInt(0)); err == nil {
		t.Fatalf("expected error for zero chain id")
	}
}

type fakeReceipts struct {
	mu       sync.Mutex
	pending  int
	receipt  *types.Receipt
	err      error
	attempts int
}

func (f *fakeReceipts) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return nil, f.err
	}
	if f.attempts <= f.pending {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func fastPolicy(attempts int) PollPolicy {
	return PollPolicy{Initial: time.Millisecond, Max: 4 * time.Millisecond, Multiplier: 2, MaxAttempts: attempts}
}

func TestWaitForReceiptPollsUntilMined(t *testing.T) {
	source := &fakeReceipts{pending: 3, receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)}}

	receipt, err := WaitForReceipt(context.Background(), source, common.Hash{0x1}, fastPolicy(10))
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if receipt.BlockNumber.Int64() != 100 {
		t.Fatalf("unexpected receipt block %s", receipt.BlockNumber)
	}
	if source.attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", source.attempts)
	}
}

func TestWaitForReceiptTimesOut(t *testing.T) {
	source := &fakeReceipts{pending: 100}

	_, err := WaitForReceipt(context.Background(), source, common.Hash{0x2}, fastPolicy(3))
	if !errors.Is(err, ErrReceiptTimeout) {
		t.Fatalf("expected ErrReceiptTimeout, got %v", err)
	}
	if source.attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", source.attempts)
	}
}

func TestWaitForReceiptReportsRevert(t *testing.T) {
	source := &fakeReceipts{receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(5)}}

	receipt, err := WaitForReceipt(context.Background(), source, common.Hash{0x3}, fastPolicy(3))
	if !errors.Is(err, ErrTransactionReverted) {
		t.Fatalf("expected ErrTransactionReverted, got %v", err)
	}
	if receipt == nil {
		t.Fatalf("expected reverted receipt to be returned")
	}
}

func TestWaitForReceiptStopsOnRPCError(t *testing.T) {
	source := &fakeReceipts{err: errors.New("connection refused")}

	_, err := WaitForReceipt(context.Background(), source, common.Hash{0x4}, fastPolicy(5))
	if err == nil || errors.Is(err, ErrReceiptTimeout) {
		t.Fatalf("expected rpc error, got %v", err)
	}
	if source.attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", source.attempts)
	}
}

func TestWaitForReceiptHonoursCancel(t *testing.T) {
	source := &fakeReceipts{pending: 1000}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := PollPolicy{Initial: time.Hour, Max: time.Hour, Multiplier: 1, MaxAttempts: 10}
	_, err := WaitForReceipt(ctx, source, common.Hash{0x5}, policy)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPollPolicyBackoffCapped(t *testing.T) {
	policy := PollPolicy{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2, MaxAttempts: 5}.normalized()
	delay := policy.Initial
	var got []time.Duration
	for i := 0; i < 4; i++ {
		delay = policy.next(delay)
		got = append(got, delay)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("step %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestFormatGasCost(t *testing.T) {
	receipt := &types.Receipt{GasUsed: 21000, EffectiveGasPrice: big.NewInt(2_000_000_000)}

	if got := GasCostWei(receipt).String(); got != "42000000000000" {
		t.Fatalf("unexpected wei cost %s", got)
	}
	if got := FormatGasCost(receipt); got != "0.000042" {
		t.Fatalf("unexpected ether cost %s", got)
	}
	if got := FormatGasCost(nil); got != "0" {
		t.Fatalf("expected zero for nil receipt, got %s", got)
	}
}
