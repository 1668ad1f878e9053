// Package wallet holds the process-wide wallet session. The session is an
// explicit object injected into everything that signs or checks connection
// state; there is no ambient singleton.
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned by signing operations before Connect or
// after Disconnect. Orchestrator preconditions surface it to the user as
// "wallet not connected".
var ErrNotConnected = fmt.Errorf("wallet not connected")

// Session is the wallet connection lifecycle: Connect initializes it from
// key material, Disconnect tears it down. Safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewSession returns a disconnected session.
func NewSession() *Session {
	return &Session{}
}

// Connect initializes the session from a hex-encoded private key.
// Reconnecting replaces the previous identity.
func (s *Session) Connect(hexKey string, chainID *big.Int) error {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return fmt.Errorf("parse wallet key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.address = crypto.PubkeyToAddress(key.PublicKey)
	s.chainID = chainID

	logrus.WithField("address", s.address.Hex()).Info("Wallet connected")
	return nil
}

// Disconnect drops the key material. Subsequent signing fails with
// ErrNotConnected until the next Connect.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return
	}
	logrus.WithField("address", s.address.Hex()).Info("Wallet disconnected")
	s.key = nil
	s.address = common.Address{}
	s.chainID = nil
}

// Connected reports whether a key is loaded.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// Address returns the connected account, or the zero address.
func (s *Session) Address() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// TransactOpts builds signing options for a write transaction.
func (s *Session) TransactOpts() (*bind.TransactOpts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrNotConnected
	}
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	return opts, nil
}
