package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Reader issues read-only contract queries. It only needs a caller backend,
// so tests can drive it with a fake.
type Reader struct {
	backend bind.ContractCaller
}

// NewReader creates a read adapter over the given backend.
func NewReader(backend bind.ContractCaller) *Reader {
	return &Reader{backend: backend}
}

func (r *Reader) call(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, out any, args ...any) error {
	bound := bind.NewBoundContract(contract, contractABI, r.backend, nil, nil)
	results := []any{out}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &results, method, args...); err != nil {
		return fmt.Errorf("%s call on %s: %w", method, contract.Hex(), err)
	}
	return nil
}

// Allowance returns how much the spender may move on the owner's behalf.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	if err := r.call(ctx, token, erc20ABI, "allowance", &out, owner, spender); err != nil {
		return nil, err
	}
	return out, nil
}

// BalanceOf returns the owner's token balance.
func (r *Reader) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var out *big.Int
	if err := r.call(ctx, token, erc20ABI, "balanceOf", &out, owner); err != nil {
		return nil, err
	}
	return out, nil
}

// Decimals returns the token's decimal precision.
func (r *Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	var out uint8
	if err := r.call(ctx, token, erc20ABI, "decimals", &out); err != nil {
		return 0, err
	}
	return out, nil
}

// ShareBalance returns the owner's vault share balance.
func (r *Reader) ShareBalance(ctx context.Context, vault, owner common.Address) (*big.Int, error) {
	var out *big.Int
	if err := r.call(ctx, vault, vaultABI, "balanceOf", &out, owner); err != nil {
		return nil, err
	}
	return out, nil
}

// PreviewDeposit asks the vault how many shares a deposit would mint.
func (r *Reader) PreviewDeposit(ctx context.Context, vault common.Address, assets *big.Int) (*big.Int, error) {
	var out *big.Int
	if err := r.call(ctx, vault, vaultABI, "previewDeposit", &out, assets); err != nil {
		return nil, err
	}
	return out, nil
}

// PreviewRedeem asks the vault how many assets a redemption would return.
func (r *Reader) PreviewRedeem(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error) {
	var out *big.Int
	if err := r.call(ctx, vault, vaultABI, "previewRedeem", &out, shares); err != nil {
		return nil, err
	}
	return out, nil
}

// TotalAssets returns the vault's total managed assets.
func (r *Reader) TotalAssets(ctx context.Context, vault common.Address) (*big.Int, error) {
	var out *big.Int
	if err := r.call(ctx, vault, vaultABI, "totalAssets", &out); err != nil {
		return nil, err
	}
	return out, nil
}
