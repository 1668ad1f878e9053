package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	musdAddr = "0x0000000000000000000000000000000000000011"
	btcAddr  = "0x0000000000000000000000000000000000000021"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL, 5*time.Second)
}

func graphqlOperation(t *testing.T, r *http.Request) string {
	t.Helper()
	var req struct {
		OperationName string `json:"operationName"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req.OperationName
}

func TestUserStakes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "UserDetails", graphqlOperation(t, r))
		_, _ = w.Write([]byte(`{"data":{"User_by_pk":{"stakes":[
			{"id":"s2","stakeId":"2","amountStaked":"2000000000000000000","depositTimestamp":"1700000100","depositTxHash":"0xbbb","interestPaid":"10","lockDuration":"7776000","unlockTimestamp":"1707776100","tokenAddress":"` + musdAddr + `","vaultAddress":"0xv1"},
			{"id":"s1","stakeId":"1","amountStaked":"1000000000000000000","depositTimestamp":"1700000000","depositTxHash":"0xaaa","interestPaid":"5","lockDuration":"7776000","unlockTimestamp":"1707776000","withdrawTimestamp":"1707776001","withdrawTxHash":"0xccc","tokenAddress":"` + musdAddr + `","vaultAddress":"0xv1"}
		]}}}`))
	})

	stakes, err := c.UserStakes(context.Background(), "0xuser")
	require.NoError(t, err)
	require.Len(t, stakes, 2)
	assert.Equal(t, "s2", stakes[0].ID)
	assert.True(t, stakes[1].IsWithdrawn())
	assert.False(t, stakes[0].IsWithdrawn())
}

func TestUserStakesUnknownAddressIsEmptyNotError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"User_by_pk":null}}`))
	})

	stakes, err := c.UserStakes(context.Background(), "0xnobody")
	require.NoError(t, err)
	assert.NotNil(t, stakes)
	assert.Empty(t, stakes)
}

func TestUserStakesGraphQLError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"field not found"}]}`))
	})

	_, err := c.UserStakes(context.Background(), "0xuser")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field not found")
}

func TestTreasuries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TreasuryDetails", graphqlOperation(t, r))
		_, _ = w.Write([]byte(`{"data":{"BeneficiaryVault":[
			{"id":"0xv1","lifetimeValueContributed":"500","tokenAddress":"` + musdAddr + `","contributions":[
				{"id":"c1","amount":"100","contributionTxHash":"0x1","contributionTimestamp":1700000000,
				 "stake":{"amountStaked":"1000","interestPaid":"100","lockDuration":"7776000","user_id":"0xalice"}}
			]},
			{"id":"0xv2","lifetimeValueContributed":"300","tokenAddress":"` + btcAddr + `","contributions":[]}
		]}}`))
	})

	got, err := c.Treasuries(context.Background(), musdAddr, btcAddr)
	require.NoError(t, err)
	assert.Equal(t, "0xv1", got.MUSD.ID)
	assert.Equal(t, "0xv2", got.BTC.ID)
	require.Len(t, got.MUSD.Contributions, 1)
	assert.Equal(t, "0xalice", got.MUSD.Contributions[0].Stake.Owner)
}

func TestTreasuriesMissingVaultFailsWhole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"BeneficiaryVault":[
			{"id":"0xv1","lifetimeValueContributed":"500","tokenAddress":"` + musdAddr + `","contributions":[]}
		]}}`))
	})

	_, err := c.Treasuries(context.Background(), musdAddr, btcAddr)
	assert.ErrorIs(t, err, ErrTreasuryNotFound)
}

func TestTreasuriesCaseInsensitiveTokenMatch(t *testing.T) {
	upper := "0x0000000000000000000000000000000000000011"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"BeneficiaryVault":[
			{"id":"0xv1","lifetimeValueContributed":"1","tokenAddress":"` + upper + `","contributions":[]},
			{"id":"0xv2","lifetimeValueContributed":"2","tokenAddress":"` + btcAddr + `","contributions":[]}
		]}}`))
	})

	got, err := c.Treasuries(context.Background(), "0x0000000000000000000000000000000000000011", btcAddr)
	require.NoError(t, err)
	assert.Equal(t, "0xv1", got.MUSD.ID)
}

func TestStakeWall(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "StakeWall", graphqlOperation(t, r))
		_, _ = w.Write([]byte(`{"data":{"Stake":[
			{"id":"s1","stakeId":"1","amountStaked":"1","depositTimestamp":"1700000000","depositTxHash":"0xaaa","interestPaid":"0","lockDuration":"60","unlockTimestamp":"1700000060","tokenAddress":"` + musdAddr + `","vaultAddress":"0xv1"}
		]}}`))
	})

	stakes, err := c.StakeWall(context.Background())
	require.NoError(t, err)
	assert.Len(t, stakes, 1)
}

func TestWaitForStakeFindsHashAfterIngestion(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			// Indexer has not ingested the new stake yet.
			_, _ = w.Write([]byte(`{"data":{"User_by_pk":{"stakes":[]}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"User_by_pk":{"stakes":[
			{"id":"s9","stakeId":"9","amountStaked":"1","depositTimestamp":"1700000000","depositTxHash":"0xFEED","interestPaid":"0","lockDuration":"60","unlockTimestamp":"1700000060","tokenAddress":"` + musdAddr + `","vaultAddress":"0xv1"}
		]}}}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stakes, match, err := c.WaitForStake(ctx, "0xuser", "0xfeed", 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "s9", match.ID)
	assert.Len(t, stakes, 1)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitForStakeTimeoutFallsBackToList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"User_by_pk":{"stakes":[
			{"id":"newest","stakeId":"3","amountStaked":"1","depositTimestamp":"1700000300","depositTxHash":"","interestPaid":"0","lockDuration":"60","unlockTimestamp":"1700000360","tokenAddress":"` + musdAddr + `","vaultAddress":"0xv1"}
		]}}}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	stakes, match, err := c.WaitForStake(ctx, "0xuser", "0xnever", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, match)
	require.Len(t, stakes, 1)
	assert.Equal(t, "newest", stakes[0].ID)
}

func TestWaitForWithdrawalPollsUntilIngested(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			// The withdrawal has not been ingested yet.
			_, _ = w.Write([]byte(`{"data":{"User_by_pk":{"stakes":[
				{"id":"s1","stakeId":"1","amountStaked":"1","depositTimestamp":"1700000000","depositTxHash":"0xaaa","interestPaid":"0","lockDuration":"60","unlockTimestamp":"1700000060","tokenAddress":"` + musdAddr + `","vaultAddress":"0xv1"}
			]}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"User_by_pk":{"stakes":[
			{"id":"s1","stakeId":"1","amountStaked":"1","depositTimestamp":"1700000000","depositTxHash":"0xaaa","interestPaid":"0","lockDuration":"60","unlockTimestamp":"1700000060","withdrawTimestamp":"1700000100","withdrawTxHash":"0xdead","tokenAddress":"` + musdAddr + `","vaultAddress":"0xv1"}
		]}}}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := c.WaitForWithdrawal(ctx, "0xuser", "1", 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, st.IsWithdrawn())
	assert.Equal(t, "0xdead", st.WithdrawTxHash)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitForWithdrawalTimeoutReturnsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"User_by_pk":{"stakes":[
			{"id":"s1","stakeId":"1","amountStaked":"1","depositTimestamp":"1700000000","depositTxHash":"0xaaa","interestPaid":"0","lockDuration":"60","unlockTimestamp":"1700000060","tokenAddress":"` + musdAddr + `","vaultAddress":"0xv1"}
		]}}}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	st, err := c.WaitForWithdrawal(ctx, "0xuser", "1", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestQueryServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.StakeWall(context.Background())
	assert.Error(t, err)
}
