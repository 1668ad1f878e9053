package main

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jack-landon/dapper-app/internal/amount"
	"github.com/jack-landon/dapper-app/internal/notify"
	"github.com/jack-landon/dapper-app/internal/orchestrator"
	"github.com/jack-landon/dapper-app/internal/registry"
	"github.com/jack-landon/dapper-app/internal/wallet"
	"github.com/sirupsen/logrus"
)

// teeNotifier fans notifications out to the structured log and the
// per-request recorder surfaced in the response.
type teeNotifier struct {
	rec *notify.Recorder
}

func (t teeNotifier) Success(msg string) {
	notify.Log{}.Success(msg)
	t.rec.Success(msg)
}

func (t teeNotifier) Error(msg string) {
	notify.Log{}.Error(msg)
	t.rec.Error(msg)
}

type txNotifications struct {
	Successes []string `json:"successes"`
	Errors    []string `json:"errors"`
}

// txResponse is the terminal outcome of one write attempt.
type txResponse struct {
	Status           string          `json:"status"`
	TxHash           string          `json:"txHash,omitempty"`
	ApproveTxHash    string          `json:"approveTxHash,omitempty"`
	ExplorerURL      string          `json:"explorerUrl,omitempty"`
	HighlightedStake string          `json:"highlightedStake,omitempty"`
	Notifications    txNotifications `json:"notifications"`
	Error            string          `json:"error,omitempty"`
}

func txStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, wallet.ErrNotConnected),
		errors.Is(err, orchestrator.ErrInsufficientAllowance):
		return http.StatusPreconditionFailed
	case errors.Is(err, orchestrator.ErrInFlight):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) finishTx(w http.ResponseWriter, action string, runner *orchestrator.Runner, rec *notify.Recorder, approveHash, hash common.Hash, err error) {
	outcome := "confirmed"
	if err != nil {
		outcome = "failed"
		if runner.State() == orchestrator.StateIdle {
			outcome = "rejected"
		}
	}
	s.metrics.txCounter.WithLabelValues(action, outcome).Inc()

	resp := txResponse{
		Status: runner.State().String(),
		Notifications: txNotifications{
			Successes: rec.Successes(),
			Errors:    rec.Errors(),
		},
		HighlightedStake: s.highlights.Current(),
	}
	if hash != (common.Hash{}) {
		resp.TxHash = hash.Hex()
		resp.ExplorerURL = explorerTxURL(s.cfg.ExplorerBaseURL, hash.Hex())
	}
	if approveHash != (common.Hash{}) {
		resp.ApproveTxHash = approveHash.Hex()
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, txStatusCode(err), resp)
}

// runGuarded drives one attempt under the server's per-action latch, so a
// second submission of the same action cannot start while one is submitting
// or pending confirmation. Distinct actions stay independent. Spend-gated
// actions fall into the approval flow when the allowance precondition
// rejects them.
func (s *Server) runGuarded(ctx context.Context, name string, runner *orchestrator.Runner, spendGated bool) (approveHash, hash common.Hash, err error) {
	if !s.beginAction(name) {
		return common.Hash{}, common.Hash{}, orchestrator.ErrInFlight
	}
	defer s.endAction(name)

	hash, err = runner.Run(ctx, false)
	if spendGated && errors.Is(err, orchestrator.ErrInsufficientAllowance) {
		approveHash, hash, err = runner.RunApproval(ctx)
	}
	return approveHash, hash, err
}

type stakeRequest struct {
	Token           string  `json:"token"`
	Amount          string  `json:"amount"`
	Duration        string  `json:"duration,omitempty"`
	DurationSeconds int64   `json:"durationSeconds,omitempty"`
	CustomValue     float64 `json:"customValue,omitempty"`
	CustomUnit      string  `json:"customUnit,omitempty"`
}

// handleStake locks tokens in a vault. An insufficient allowance triggers
// the approval transaction first; the stake follows automatically once the
// approval confirms.
func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, ok := s.resolveToken(req.Token)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "unknown token")
		return
	}
	tokenAddr, vaultAddr, err := writeAddresses(token)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	seconds, err := s.lockSeconds(req.Duration, req.DurationSeconds, req.CustomValue, req.CustomUnit)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	amt, err := s.resolveAmount(r.Context(), req.Amount, token.Decimals, tokenAddr)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "Please enter a valid amount")
		return
	}

	rec := &notify.Recorder{}
	runner := orchestrator.NewRunner(orchestrator.Action{
		Name: "stake",
		SpendCheck: func(ctx context.Context) (*big.Int, *big.Int, error) {
			allowance, err := s.reader.Allowance(ctx, tokenAddr, s.session.Address(), vaultAddr)
			return amt, allowance, err
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return s.writer.Stake(ctx, vaultAddr, amt, seconds)
		},
		Approve: func(ctx context.Context) (common.Hash, error) {
			return s.writer.Approve(ctx, tokenAddr, vaultAddr, amt)
		},
		OnConfirmed: func(ctx context.Context, txHash common.Hash) {
			s.settleStake(ctx, txHash)
		},
		OnApproveConfirmed: func(ctx context.Context) {
			s.logAllowance(ctx, tokenAddr, vaultAddr)
		},
		ShouldReinvoke: func() bool { return amt.Sign() > 0 },
	}, s.writer, teeNotifier{rec}, s.session, s.cfg.PostApproveDelay)

	approveHash, hash, err := s.runGuarded(r.Context(), "stake", runner, true)
	s.finishTx(w, "stake", runner, rec, approveHash, hash, err)
}

// resolveAmount parses a display amount, with "max" standing in for the
// caller's full token balance.
func (s *Server) resolveAmount(ctx context.Context, raw string, decimals int, tokenAddr common.Address) (*big.Int, error) {
	if !strings.EqualFold(strings.TrimSpace(raw), "max") {
		return amount.ParseUnits(raw, decimals)
	}
	if !s.session.Connected() {
		return nil, wallet.ErrNotConnected
	}
	rctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	balance, err := s.reader.BalanceOf(rctx, tokenAddr, s.session.Address())
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Sign() <= 0 {
		return nil, errors.New("no balance to stake")
	}
	return balance, nil
}

// settleStake polls the indexer until the just-confirmed deposit shows up,
// then highlights it. When the hash never appears before the deadline the
// newest record is assumed to be ours.
func (s *Server) settleStake(ctx context.Context, txHash common.Hash) {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.IndexerSettleTimeout)
	defer cancel()

	address := strings.ToLower(s.session.Address().Hex())
	stakes, match, err := s.indexer.WaitForStake(wctx, address, txHash.Hex(), time.Second)
	if err != nil {
		logrus.WithError(err).Warn("Indexer did not surface the new stake")
		return
	}
	if match == nil && len(stakes) > 0 {
		match = &stakes[0]
	}
	if match == nil {
		return
	}
	s.highlights.Mark(match.ID)
	logrus.WithFields(logrus.Fields{
		"stake_id": match.ID,
		"tx":       txHash.Hex(),
	}).Info("New stake ingested")
}

func (s *Server) logAllowance(ctx context.Context, tokenAddr, vaultAddr common.Address) {
	allowance, err := s.reader.Allowance(ctx, tokenAddr, s.session.Address(), vaultAddr)
	if err != nil {
		logrus.WithError(err).Warn("Allowance re-read failed")
		return
	}
	logrus.WithField("allowance", allowance.String()).Debug("Allowance updated")
}

type withdrawRequest struct {
	StakeID string `json:"stakeId"`
	Vault   string `json:"vault,omitempty"`
	Token   string `json:"token,omitempty"`
}

// handleWithdraw returns the principal of an unlocked stake. Withdrawals
// spend nothing the vault does not already hold, so there is no allowance
// gate.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	stakeID, ok := new(big.Int).SetString(strings.TrimSpace(req.StakeID), 10)
	if !ok || stakeID.Sign() < 0 {
		errorJSON(w, http.StatusBadRequest, "missing or invalid stakeId")
		return
	}

	var vaultAddr common.Address
	switch {
	case common.IsHexAddress(req.Vault):
		vaultAddr = common.HexToAddress(req.Vault)
	default:
		token, ok := s.resolveToken(req.Token)
		if !ok || !common.IsHexAddress(token.VaultAddress) {
			errorJSON(w, http.StatusBadRequest, "missing vault address")
			return
		}
		vaultAddr = common.HexToAddress(token.VaultAddress)
	}

	rec := &notify.Recorder{}
	runner := orchestrator.NewRunner(orchestrator.Action{
		Name: "withdraw",
		Submit: func(ctx context.Context) (common.Hash, error) {
			return s.writer.Unstake(ctx, vaultAddr, stakeID)
		},
		OnConfirmed: func(ctx context.Context, txHash common.Hash) {
			s.settleWithdrawal(ctx, stakeID.String())
		},
	}, s.writer, teeNotifier{rec}, s.session, s.cfg.PostApproveDelay)

	_, hash, err := s.runGuarded(r.Context(), "withdraw", runner, false)
	s.finishTx(w, "withdraw", runner, rec, common.Hash{}, hash, err)
}

// settleWithdrawal polls the indexer until the withdrawal's terminal state
// is ingested, so the next stake fetch observes it rather than the
// pre-withdrawal list.
func (s *Server) settleWithdrawal(ctx context.Context, stakeID string) {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.IndexerSettleTimeout)
	defer cancel()

	address := strings.ToLower(s.session.Address().Hex())
	st, err := s.indexer.WaitForWithdrawal(wctx, address, stakeID, time.Second)
	if err != nil {
		logrus.WithError(err).Warn("Stake re-fetch after withdrawal failed")
		return
	}
	if st == nil {
		logrus.WithField("stake_id", stakeID).Warn("Indexer did not surface the withdrawal")
		return
	}
	logrus.WithFields(logrus.Fields{
		"stake_id": stakeID,
		"tx":       st.WithdrawTxHash,
	}).Debug("Withdrawal ingested")
}

type treasuryRequest struct {
	Token  string `json:"token"`
	Amount string `json:"amount,omitempty"`
	Shares string `json:"shares,omitempty"`
}

// handleTreasuryDeposit adds liquidity to a treasury vault, minting shares
// to the caller. Spend-gated like staking.
func (s *Server) handleTreasuryDeposit(w http.ResponseWriter, r *http.Request) {
	var req treasuryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, ok := s.resolveToken(req.Token)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "unknown token")
		return
	}
	tokenAddr, vaultAddr, err := writeAddresses(token)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	assets, err := amount.ParseUnits(req.Amount, token.Decimals)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "Please enter a valid amount")
		return
	}

	rec := &notify.Recorder{}
	runner := orchestrator.NewRunner(orchestrator.Action{
		Name: "deposit",
		SpendCheck: func(ctx context.Context) (*big.Int, *big.Int, error) {
			allowance, err := s.reader.Allowance(ctx, tokenAddr, s.session.Address(), vaultAddr)
			return assets, allowance, err
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return s.writer.Deposit(ctx, vaultAddr, assets, s.session.Address())
		},
		Approve: func(ctx context.Context) (common.Hash, error) {
			return s.writer.Approve(ctx, tokenAddr, vaultAddr, assets)
		},
		OnConfirmed: func(ctx context.Context, txHash common.Hash) {
			// The deposit consumed the allowance; both reads refresh.
			s.logAllowance(ctx, tokenAddr, vaultAddr)
			s.refreshShares(ctx, vaultAddr)
		},
		OnApproveConfirmed: func(ctx context.Context) {
			s.logAllowance(ctx, tokenAddr, vaultAddr)
		},
		ShouldReinvoke: func() bool { return assets.Sign() > 0 },
	}, s.writer, teeNotifier{rec}, s.session, s.cfg.PostApproveDelay)

	approveHash, hash, err := s.runGuarded(r.Context(), "deposit", runner, true)
	s.finishTx(w, "deposit", runner, rec, approveHash, hash, err)
}

// handleTreasuryRedeem burns treasury shares, returning the underlying
// assets to the caller.
func (s *Server) handleTreasuryRedeem(w http.ResponseWriter, r *http.Request) {
	var req treasuryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, ok := s.resolveToken(req.Token)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "unknown token")
		return
	}
	_, vaultAddr, err := writeAddresses(token)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	shares, err := amount.ParseUnits(req.Shares, token.Decimals)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "Please enter a valid amount")
		return
	}

	rec := &notify.Recorder{}
	runner := orchestrator.NewRunner(orchestrator.Action{
		Name: "redeem",
		Submit: func(ctx context.Context) (common.Hash, error) {
			owner := s.session.Address()
			return s.writer.Redeem(ctx, vaultAddr, shares, owner, owner)
		},
		OnConfirmed: func(ctx context.Context, txHash common.Hash) {
			s.refreshShares(ctx, vaultAddr)
		},
	}, s.writer, teeNotifier{rec}, s.session, s.cfg.PostApproveDelay)

	_, hash, err := s.runGuarded(r.Context(), "redeem", runner, false)
	s.finishTx(w, "redeem", runner, rec, common.Hash{}, hash, err)
}

func (s *Server) refreshShares(ctx context.Context, vaultAddr common.Address) {
	shares, err := s.reader.ShareBalance(ctx, vaultAddr, s.session.Address())
	if err != nil {
		logrus.WithError(err).Warn("Share balance re-read failed")
		return
	}
	logrus.WithField("shares", shares.String()).Debug("Treasury shares updated")
}

func writeAddresses(token registry.Token) (tokenAddr, vaultAddr common.Address, err error) {
	if !common.IsHexAddress(token.Address) || !common.IsHexAddress(token.VaultAddress) {
		return common.Address{}, common.Address{}, errors.New("token is not configured for writes")
	}
	return common.HexToAddress(token.Address), common.HexToAddress(token.VaultAddress), nil
}
