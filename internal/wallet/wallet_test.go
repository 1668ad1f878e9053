package wallet

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known throwaway key (hardhat account #0).
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestSessionLifecycle(t *testing.T) {
	s := NewSession()
	assert.False(t, s.Connected())

	_, err := s.TransactOpts()
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, s.Connect(testKey, big.NewInt(31611)))
	assert.True(t, s.Connected())
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", s.Address().Hex())

	opts, err := s.TransactOpts()
	require.NoError(t, err)
	assert.Equal(t, s.Address(), opts.From)

	s.Disconnect()
	assert.False(t, s.Connected())
	_, err = s.TransactOpts()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectAcceptsHexPrefix(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Connect("0x"+testKey, big.NewInt(1)))
	assert.True(t, s.Connected())
}

func TestConnectRejectsGarbage(t *testing.T) {
	s := NewSession()
	assert.Error(t, s.Connect("not-a-key", big.NewInt(1)))
	assert.False(t, s.Connected())
}

func TestDisconnectIdempotent(t *testing.T) {
	s := NewSession()
	s.Disconnect()
	s.Disconnect()
	assert.False(t, s.Connected())
}
