package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jack-landon/dapper-app/internal/wallet"
	"github.com/sirupsen/logrus"
)

// WriteBackend is the subset of ethclient the writer needs: transaction
// submission plus receipt lookup.
type WriteBackend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Writer submits state-changing calls signed by the wallet session and
// watches their receipts. A transaction cannot be cancelled once submitted;
// the only cancellable work is the receipt polling, bounded by ctx.
type Writer struct {
	backend      WriteBackend
	session      *wallet.Session
	pollInterval time.Duration
}

// NewWriter creates a write adapter over the given backend and session.
func NewWriter(backend WriteBackend, session *wallet.Session) *Writer {
	return &Writer{
		backend:      backend,
		session:      session,
		pollInterval: time.Second,
	}
}

// WithPollInterval overrides how often the receipt watcher polls.
func (w *Writer) WithPollInterval(d time.Duration) *Writer {
	w.pollInterval = d
	return w
}

func (w *Writer) transact(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...any) (common.Hash, error) {
	opts, err := w.session.TransactOpts()
	if err != nil {
		return common.Hash{}, err
	}
	opts.Context = ctx

	bound := bind.NewBoundContract(contract, contractABI, nil, w.backend, nil)
	tx, err := bound.Transact(opts, method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit %s to %s: %w", method, contract.Hex(), err)
	}

	logrus.WithFields(logrus.Fields{
		"method":   method,
		"contract": contract.Hex(),
		"tx":       tx.Hash().Hex(),
	}).Info("Transaction submitted")
	return tx.Hash(), nil
}

// Approve authorizes the spender to move amount of token.
func (w *Writer) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	return w.transact(ctx, token, erc20ABI, "approve", spender, amount)
}

// Stake locks amount in the vault for lockSeconds.
func (w *Writer) Stake(ctx context.Context, vault common.Address, amount *big.Int, lockSeconds int64) (common.Hash, error) {
	return w.transact(ctx, vault, vaultABI, "stake", amount, big.NewInt(lockSeconds))
}

// Unstake withdraws the principal of an unlocked stake.
func (w *Writer) Unstake(ctx context.Context, vault common.Address, stakeID *big.Int) (common.Hash, error) {
	return w.transact(ctx, vault, vaultABI, "unstake", stakeID)
}

// Deposit adds treasury liquidity, minting shares to the receiver.
func (w *Writer) Deposit(ctx context.Context, vault common.Address, assets *big.Int, receiver common.Address) (common.Hash, error) {
	return w.transact(ctx, vault, vaultABI, "deposit", assets, receiver)
}

// Redeem burns treasury shares, returning assets to the receiver.
func (w *Writer) Redeem(ctx context.Context, vault common.Address, shares *big.Int, receiver, owner common.Address) (common.Hash, error) {
	return w.transact(ctx, vault, vaultABI, "redeem", shares, receiver, owner)
}

// WaitMined polls for the transaction receipt until the context expires.
// A mined-but-reverted transaction is an error: the orchestrator treats it
// the same as a provider rejection, surfaced with no automatic retry.
func (w *Writer) WaitMined(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		}
		if err != nil && err != ethereum.NotFound {
			logrus.WithError(err).WithField("tx", txHash.Hex()).Debug("Receipt not yet available")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for receipt of %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
