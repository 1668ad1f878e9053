// Package indexer queries the external GraphQL indexer that ingests the
// vault contracts' on-chain events. All reads here are eventually
// consistent: a just-mined transaction is visible only after ingestion.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jack-landon/dapper-app/internal/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrTreasuryNotFound is raised when the indexer response is missing one of
// the two expected treasury vaults. Callers treat it as a page-level
// failure: neither treasury card renders.
var ErrTreasuryNotFound = fmt.Errorf("treasury not found")

// Client issues GraphQL queries against the indexer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// New creates an indexer client for the given GraphQL endpoint.
func New(baseURL string, timeout time.Duration) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = timeout

	return &Client{
		baseURL:    baseURL,
		httpClient: retryClient.StandardClient(),
		tracer:     otel.Tracer("dapper/indexer"),
	}
}

type graphqlRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// query posts one GraphQL operation and decodes data into out.
func (c *Client) query(ctx context.Context, operation, query string, vars map[string]any, out any) error {
	ctx, span := c.tracer.Start(ctx, "indexer."+operation)
	defer span.End()

	body, err := json.Marshal(graphqlRequest{
		Query:         query,
		Variables:     vars,
		OperationName: operation,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	logrus.Debugf("Querying indexer: %s", operation)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("indexer %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("indexer %s: status %d, body: %s", operation, resp.StatusCode, string(raw))
		span.RecordError(err)
		return err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("indexer %s: %s", operation, envelope.Errors[0].Message)
	}
	if envelope.Data == nil {
		return fmt.Errorf("indexer %s: empty data", operation)
	}
	return json.Unmarshal(envelope.Data, out)
}

const userStakesQuery = `
query UserDetails($address: String!) {
  User_by_pk(id: $address) {
    stakes(order_by: {depositTimestamp: desc}) {
      id
      stakeId
      amountStaked
      depositTimestamp
      depositTxHash
      interestPaid
      lockDuration
      unlockTimestamp
      withdrawTimestamp
      withdrawTxHash
      tokenAddress
      vaultAddress
    }
  }
}`

// UserStakes returns a user's stake records, newest deposit first. An
// address the indexer has never seen yields an empty list, not an error.
func (c *Client) UserStakes(ctx context.Context, address string) ([]model.Stake, error) {
	var data struct {
		User *struct {
			Stakes []model.Stake `json:"stakes"`
		} `json:"User_by_pk"`
	}
	err := c.query(ctx, "UserDetails", userStakesQuery, map[string]any{"address": address}, &data)
	if err != nil {
		return nil, err
	}
	if data.User == nil {
		return []model.Stake{}, nil
	}
	return data.User.Stakes, nil
}

const stakeWallQuery = `
query StakeWall {
  Stake(order_by: {depositTimestamp: desc}) {
    id
    stakeId
    amountStaked
    depositTimestamp
    depositTxHash
    interestPaid
    lockDuration
    unlockTimestamp
    withdrawTimestamp
    withdrawTxHash
    tokenAddress
    vaultAddress
  }
}`

// StakeWall returns every stake the indexer knows about, newest first.
func (c *Client) StakeWall(ctx context.Context) ([]model.Stake, error) {
	var data struct {
		Stakes []model.Stake `json:"Stake"`
	}
	if err := c.query(ctx, "StakeWall", stakeWallQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.Stakes == nil {
		return []model.Stake{}, nil
	}
	return data.Stakes, nil
}

const treasuriesQuery = `
query TreasuryDetails {
  BeneficiaryVault {
    id
    lifetimeValueContributed
    tokenAddress
    contributions(order_by: {contributionTimestamp: desc}, limit: 10) {
      id
      amount
      contributionTxHash
      contributionTimestamp
      stake {
        amountStaked
        interestPaid
        lockDuration
        user_id
      }
    }
  }
}`

// Treasuries is the pair of treasury vaults backing the two listed tokens.
type Treasuries struct {
	MUSD model.TreasuryVault `json:"musdTreasury"`
	BTC  model.TreasuryVault `json:"btcTreasury"`
}

// Treasuries fetches both treasury vaults, each with its ten most recent
// contributions. Missing either vault fails the fetch as a whole.
func (c *Client) Treasuries(ctx context.Context, musdToken, btcToken string) (Treasuries, error) {
	var data struct {
		Vaults []model.TreasuryVault `json:"BeneficiaryVault"`
	}
	if err := c.query(ctx, "TreasuryDetails", treasuriesQuery, nil, &data); err != nil {
		return Treasuries{}, err
	}

	find := func(token string) (model.TreasuryVault, bool) {
		for _, v := range data.Vaults {
			if strings.EqualFold(v.TokenAddress, token) {
				return v, true
			}
		}
		return model.TreasuryVault{}, false
	}

	musd, okMUSD := find(musdToken)
	btc, okBTC := find(btcToken)
	if !okMUSD || !okBTC {
		return Treasuries{}, ErrTreasuryNotFound
	}
	return Treasuries{MUSD: musd, BTC: btc}, nil
}

// WaitForStake polls UserStakes until a stake whose deposit transaction
// matches txHash appears, or ctx expires. It returns the freshest list
// either way; the matched stake is nil when the hash never showed up
// (the indexer may not have ingested the hash field yet), in which case
// callers fall back to the newest record.
//
// This replaces the fixed "sleep then re-fetch" the dashboard used, which
// raced the indexer's ingestion latency.
func (c *Client) WaitForStake(ctx context.Context, address, txHash string, interval time.Duration) ([]model.Stake, *model.Stake, error) {
	if interval <= 0 {
		interval = time.Second
	}

	var stakes []model.Stake
	var err error
	for {
		stakes, err = c.UserStakes(ctx, address)
		if err == nil {
			for i := range stakes {
				if strings.EqualFold(stakes[i].DepositTxHash, txHash) {
					return stakes, &stakes[i], nil
				}
			}
		}

		select {
		case <-ctx.Done():
			// Timed out waiting for ingestion. Surface the last list so
			// the caller can still apply its newest-record fallback.
			if err != nil {
				return nil, nil, err
			}
			return stakes, nil, nil
		case <-time.After(interval):
		}
	}
}

// WaitForWithdrawal polls UserStakes until the stake with the given on-chain
// id carries a withdraw timestamp, or ctx expires. Like WaitForStake, this
// bounds the ingestion race instead of sleeping a fixed interval and hoping.
// A nil stake with a nil error means ingestion never caught up in time.
func (c *Client) WaitForWithdrawal(ctx context.Context, address, stakeID string, interval time.Duration) (*model.Stake, error) {
	if interval <= 0 {
		interval = time.Second
	}

	for {
		stakes, err := c.UserStakes(ctx, address)
		if err == nil {
			for i := range stakes {
				if stakes[i].StakeID == stakeID && stakes[i].IsWithdrawn() {
					return &stakes[i], nil
				}
			}
		}

		select {
		case <-ctx.Done():
			if err != nil {
				return nil, err
			}
			return nil, nil
		case <-time.After(interval):
		}
	}
}
