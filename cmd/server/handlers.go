package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jack-landon/dapper-app/internal/amount"
	"github.com/jack-landon/dapper-app/internal/countdown"
	"github.com/jack-landon/dapper-app/internal/model"
	"github.com/jack-landon/dapper-app/internal/registry"
	"github.com/jack-landon/dapper-app/internal/stats"
	"github.com/jack-landon/dapper-app/internal/validation"
	"github.com/jack-landon/dapper-app/internal/yield"
	"github.com/sirupsen/logrus"
)

// stakeView is one stake record decorated for display.
type stakeView struct {
	model.Stake
	Status            model.StakeStatus  `json:"status"`
	Countdown         countdown.Snapshot `json:"countdown"`
	TokenSymbol       string             `json:"tokenSymbol,omitempty"`
	AmountDisplay     string             `json:"amountDisplay"`
	InterestDisplay   string             `json:"interestDisplay"`
	LockDurationHuman string             `json:"lockDurationHuman"`
	ExplorerURL       string             `json:"explorerUrl,omitempty"`
	Highlighted       bool               `json:"highlighted,omitempty"`
}

func (s *Server) stakeViews(stakes []model.Stake, now time.Time) []stakeView {
	highlighted := s.highlights.Current()
	views := make([]stakeView, 0, len(stakes))
	for _, st := range stakes {
		decimals := s.registry.DecimalsFor(st.TokenAddress)
		symbol := ""
		if t, ok := s.registry.TokenByAddress(st.TokenAddress); ok {
			symbol = t.Symbol
		}
		views = append(views, stakeView{
			Stake:             st,
			Status:            st.Status(now),
			Countdown:         countdown.At(st, now),
			TokenSymbol:       symbol,
			AmountDisplay:     amount.ToSignificant(amount.ToFloat(st.AmountStaked, decimals), 3),
			InterestDisplay:   amount.ToSignificant(amount.ToFloat(st.InterestPaid, decimals), 3),
			LockDurationHuman: registry.HumanizeLockDuration(st.LockDurationSeconds()),
			ExplorerURL:       explorerTxURL(s.cfg.ExplorerBaseURL, st.DepositTxHash),
			Highlighted:       highlighted != "" && st.ID == highlighted,
		})
	}
	return views
}

// handleStakeWall serves the global feed of every stake the indexer knows.
// An upstream failure keeps the payload shape with an empty list, so the
// feed renders as empty rather than broken.
func (s *Server) handleStakeWall(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	stakes, err := s.indexer.StakeWall(ctx)
	if err != nil {
		// The failure detail stays in the log; the feed gets a fixed
		// message and an empty list so it renders empty, not broken.
		logrus.WithError(err).Warn("Stake wall fetch failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  "Failed to load stake wall",
			"stakes": []stakeView{},
		})
		return
	}

	now := time.Now()
	stakes = validation.FilterStakes(stakes)
	writeJSON(w, http.StatusOK, map[string]any{
		"stakes":  s.stakeViews(stakes, now),
		"summary": stats.Summarize(stakes, s.registry, now),
	})
}

// handleStakes serves one user's stake records, newest deposit first.
func (s *Server) handleStakes(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if !common.IsHexAddress(address) {
		errorJSON(w, http.StatusBadRequest, "missing or invalid address parameter")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	stakes, err := s.indexer.UserStakes(ctx, strings.ToLower(address))
	if err != nil {
		errorJSON(w, http.StatusBadGateway, err.Error())
		return
	}

	now := time.Now()
	stakes = validation.FilterStakes(stakes)
	writeJSON(w, http.StatusOK, map[string]any{
		"address":    strings.ToLower(address),
		"stakes":     s.stakeViews(stakes, now),
		"readyCount": model.ReadyCount(stakes, now),
		"summary":    stats.Summarize(stakes, s.registry, now),
	})
}

// treasuryView is one treasury vault decorated for display.
type treasuryView struct {
	model.TreasuryVault
	Summary     stats.TreasuryTotals `json:"summary"`
	TotalAssets string               `json:"totalAssets,omitempty"`
	UserShares  string               `json:"userShares,omitempty"`
	UserAssets  string               `json:"userAssets,omitempty"`
}

func (s *Server) treasuryView(ctx context.Context, vault model.TreasuryVault) treasuryView {
	vault.Contributions = validation.FilterContributions(vault.Contributions)
	decimals := s.registry.DecimalsFor(vault.TokenAddress)
	view := treasuryView{
		TreasuryVault: vault,
		Summary:       stats.SummarizeTreasury(vault, decimals),
	}

	token, ok := s.registry.TokenByAddress(vault.TokenAddress)
	if !ok || s.reader == nil || !common.IsHexAddress(token.VaultAddress) {
		return view
	}
	vaultAddr := common.HexToAddress(token.VaultAddress)

	if total, err := s.reader.TotalAssets(ctx, vaultAddr); err == nil {
		view.TotalAssets = amount.FormatUnits(total, decimals)
	} else {
		logrus.WithError(err).Debug("Treasury totalAssets read failed")
	}

	if !s.session.Connected() {
		return view
	}
	owner := s.session.Address()
	shares, err := s.reader.ShareBalance(ctx, vaultAddr, owner)
	if err != nil {
		logrus.WithError(err).Debug("Treasury share balance read failed")
		return view
	}
	view.UserShares = amount.FormatUnits(shares, decimals)
	if shares.Sign() > 0 {
		if assets, err := s.reader.PreviewRedeem(ctx, vaultAddr, shares); err == nil {
			view.UserAssets = amount.FormatUnits(assets, decimals)
		}
	}
	return view
}

// handleTreasuries serves both treasury vaults. Missing either vault fails
// the endpoint as a whole.
func (s *Server) handleTreasuries(w http.ResponseWriter, r *http.Request) {
	musd, okMUSD := s.registry.TokenBySymbol("MUSD")
	btc, okBTC := s.registry.TokenBySymbol("BTC")
	if !okMUSD || !okBTC {
		errorJSON(w, http.StatusInternalServerError, "registry is missing a treasury token")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	treasuries, err := s.indexer.Treasuries(ctx, musd.Address, btc.Address)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"musdTreasury": s.treasuryView(ctx, treasuries.MUSD),
		"btcTreasury":  s.treasuryView(ctx, treasuries.BTC),
	})
}

// handlePreview computes the upfront-yield estimate for a prospective stake.
// The lock window comes from a preset label, explicit seconds, or a custom
// value/unit pair.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	token, ok := s.resolveToken(q.Get("token"))
	if !ok {
		errorJSON(w, http.StatusBadRequest, "unknown token")
		return
	}

	principal, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil || principal <= 0 {
		errorJSON(w, http.StatusBadRequest, "missing or invalid amount parameter")
		return
	}

	rawSeconds, err := parsePositiveInt(q.Get("seconds"))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid seconds parameter")
		return
	}
	customValue, err := parsePositiveFloat(q.Get("value"))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid value parameter")
		return
	}
	seconds, err := s.lockSeconds(q.Get("duration"), rawSeconds, customValue, q.Get("unit"))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	multiplier := s.registry.MultiplierFor(seconds)
	preview := yield.Compute(principal, token.APY*multiplier, seconds)
	treasury := yield.EstimateTreasury(principal, token.APY)

	writeJSON(w, http.StatusOK, map[string]any{
		"token":            token.Symbol,
		"multiplier":       multiplier,
		"preview":          preview,
		"yieldDisplay":     yield.Display(preview.Yield),
		"totalDisplay":     yield.Display(preview.Total),
		"durationHuman":    registry.HumanizeLockDuration(seconds),
		"treasuryEstimate": treasury,
	})
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	walletStatus := map[string]any{"connected": s.session.Connected()}
	if s.session.Connected() {
		walletStatus["address"] = s.session.Address().Hex()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "operational",
		"uptime":  time.Since(startTime).String(),
		"version": "1.0.0",
		"wallet":  walletStatus,
		"configuration": map[string]any{
			"indexer":   s.cfg.IndexerBaseURL,
			"rpc":       s.cfg.RPCEndpoint,
			"tokens":    len(s.registry.Tokens),
			"durations": len(s.registry.Durations),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
