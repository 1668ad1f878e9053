// Package orchestrator drives a single on-chain state-changing call through
// its full lifecycle and reconciles local state with its outcome.
//
// The same machine serves stake, unstake, treasury-deposit and
// treasury-redeem; the differences live in the Action hooks, so the
// approve/act/confirm shape is implemented once and instantiated per action.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jack-landon/dapper-app/internal/notify"
	"github.com/jack-landon/dapper-app/internal/wallet"
	"github.com/sirupsen/logrus"
)

// State of the current or most recent attempt.
type State int32

const (
	StateIdle State = iota
	StateSubmitting
	StatePending
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePending:
		return "pending-confirmation"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrInFlight means a submission is already submitting or pending on
	// this instance. The triggering affordance should have been disabled;
	// a fresh attempt may start once the current one reaches a terminal
	// state.
	ErrInFlight = errors.New("action already in flight")

	// ErrInsufficientAllowance blocks a spend-gated action before
	// submission. The caller runs the approval flow instead.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Waiter watches a submitted transaction until its receipt is observed.
type Waiter interface {
	WaitMined(ctx context.Context, txHash common.Hash) error
}

// Action is the per-instance configuration of the gated-action machine.
type Action struct {
	// Name labels notifications and logs ("stake", "withdraw", ...).
	Name string

	// Validate runs synchronously before anything touches the network.
	// Optional.
	Validate func() error

	// SpendCheck returns the required spend and current allowance for
	// spend-gated actions. Nil means the action needs no allowance.
	SpendCheck func(ctx context.Context) (required, allowance *big.Int, err error)

	// Submit hands the transaction to the wallet/provider and returns
	// its hash.
	Submit func(ctx context.Context) (common.Hash, error)

	// Approve submits the allowance-granting transaction. Required only
	// when SpendCheck is set and the approval flow is used.
	Approve func(ctx context.Context) (common.Hash, error)

	// OnConfirmed runs action-specific side effects after the receipt
	// confirms (re-reads, indexer re-fetches, view switches). Optional.
	OnConfirmed func(ctx context.Context, txHash common.Hash)

	// OnApproveConfirmed re-reads the allowance after a confirmed
	// approval. Optional.
	OnApproveConfirmed func(ctx context.Context)

	// ShouldReinvoke reports whether a pending requested amount is still
	// set and positive, so a confirmed approval automatically re-invokes
	// the gated action. Optional; nil means never.
	ShouldReinvoke func() bool
}

// Runner executes one Action with strict per-instance sequencing. Distinct
// runners are independent: concurrent attempts on different instances may
// be in flight simultaneously.
type Runner struct {
	action   Action
	waiter   Waiter
	notifier notify.Notifier
	session  *wallet.Session

	// Delay between a confirmed approval and the automatic re-invoke,
	// giving the read path time to observe the updated allowance.
	postApproveDelay time.Duration

	mu       sync.Mutex
	state    State
	inFlight bool
	lastHash common.Hash
}

// NewRunner builds a runner for one action instance.
func NewRunner(action Action, waiter Waiter, notifier notify.Notifier, session *wallet.Session, postApproveDelay time.Duration) *Runner {
	return &Runner{
		action:           action,
		waiter:           waiter,
		notifier:         notifier,
		session:          session,
		postApproveDelay: postApproveDelay,
	}
}

// State returns the state of the current or most recent attempt.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastHash returns the transaction hash of the in-flight or last confirmed
// attempt. Cleared when an attempt fails after submission.
func (r *Runner) LastHash() common.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

func (r *Runner) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight {
		return false
	}
	r.inFlight = true
	return true
}

func (r *Runner) finish(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	r.inFlight = false
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *Runner) setHash(h common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastHash = h
}

// Run drives one attempt: precondition checks, submission, receipt wait,
// confirmation side effects. It blocks until the attempt reaches a terminal
// state. bypassAllowance skips the spend check; it is set only by the
// internal re-invoke that follows a just-confirmed approval.
func (r *Runner) Run(ctx context.Context, bypassAllowance bool) (common.Hash, error) {
	if !r.begin() {
		return common.Hash{}, ErrInFlight
	}

	// Preconditions are synchronous rejections: the attempt never leaves
	// idle and no failed state is recorded.
	if err := r.preconditions(ctx, bypassAllowance); err != nil {
		r.finish(StateIdle)
		return common.Hash{}, err
	}

	r.setState(StateSubmitting)
	hash, err := r.action.Submit(ctx)
	if err != nil {
		// Wallet rejected or the call threw before returning a handle.
		r.notifier.Error(fmt.Sprintf("Failed to submit %s: %v", r.action.Name, err))
		r.finish(StateFailed)
		return common.Hash{}, err
	}
	r.setHash(hash)
	r.setState(StatePending)

	if err := r.waiter.WaitMined(ctx, hash); err != nil {
		// Provider rejection and on-chain revert look the same here:
		// surface the watcher's message, clear the handle, no retry.
		r.notifier.Error(err.Error())
		r.setHash(common.Hash{})
		r.finish(StateFailed)
		return common.Hash{}, err
	}

	r.notifier.Success(fmt.Sprintf("%s successful", title(r.action.Name)))
	if r.action.OnConfirmed != nil {
		r.action.OnConfirmed(ctx, hash)
	}
	r.finish(StateConfirmed)
	return hash, nil
}

func (r *Runner) preconditions(ctx context.Context, bypassAllowance bool) error {
	if r.session != nil && !r.session.Connected() {
		r.notifier.Error("Please connect your wallet first")
		return wallet.ErrNotConnected
	}
	if r.action.Validate != nil {
		if err := r.action.Validate(); err != nil {
			r.notifier.Error(err.Error())
			return err
		}
	}
	if r.action.SpendCheck != nil && !bypassAllowance {
		required, allowance, err := r.action.SpendCheck(ctx)
		if err != nil {
			return fmt.Errorf("allowance check: %w", err)
		}
		if allowance == nil {
			allowance = new(big.Int)
		}
		if allowance.Cmp(required) < 0 {
			r.notifier.Error("Insufficient allowance")
			return ErrInsufficientAllowance
		}
	}
	return nil
}

// RunApproval submits the approval transaction and, once it confirms,
// re-reads the allowance and automatically re-invokes the gated action on
// the bypass path, after a short fixed delay so the read path can observe
// the updated state. The re-invoke only happens while the requested amount
// is still set and positive.
//
// Returns the approval hash and, when the action was re-invoked, its hash.
func (r *Runner) RunApproval(ctx context.Context) (approveHash, actionHash common.Hash, err error) {
	if r.action.Approve == nil {
		return common.Hash{}, common.Hash{}, fmt.Errorf("%s has no approval step", r.action.Name)
	}
	if !r.begin() {
		return common.Hash{}, common.Hash{}, ErrInFlight
	}

	if r.session != nil && !r.session.Connected() {
		r.notifier.Error("Please connect your wallet first")
		r.finish(StateIdle)
		return common.Hash{}, common.Hash{}, wallet.ErrNotConnected
	}

	r.setState(StateSubmitting)
	approveHash, err = r.action.Approve(ctx)
	if err != nil {
		r.notifier.Error(fmt.Sprintf("Failed to submit approval: %v", err))
		r.finish(StateFailed)
		return common.Hash{}, common.Hash{}, err
	}
	r.setState(StatePending)

	if err = r.waiter.WaitMined(ctx, approveHash); err != nil {
		r.notifier.Error(err.Error())
		r.finish(StateFailed)
		return common.Hash{}, common.Hash{}, err
	}

	r.notifier.Success("Approval successful")
	if r.action.OnApproveConfirmed != nil {
		r.action.OnApproveConfirmed(ctx)
	}
	r.finish(StateConfirmed)

	if r.action.ShouldReinvoke == nil || !r.action.ShouldReinvoke() {
		return approveHash, common.Hash{}, nil
	}

	logrus.WithField("action", r.action.Name).Debug("Approval confirmed, re-invoking gated action")
	select {
	case <-ctx.Done():
		return approveHash, common.Hash{}, ctx.Err()
	case <-time.After(r.postApproveDelay):
	}

	actionHash, err = r.Run(ctx, true)
	return approveHash, actionHash, err
}

func title(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
