package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	OIDCPurposeLogin = "login"
	OIDCPurposeLink  = "link"
)

var (
	ErrStateInvalid = errors.New("unknown or already consumed state")
	ErrStateExpired = errors.New("state expired")
)

// OIDCTransaction is the server-held correlation record for one in-flight
// external login or link attempt.
type OIDCTransaction struct {
	Purpose   string
	UserID    *uuid.UUID
	Verifier  string
	Nonce     string
	CreatedAt time.Time
}

// OIDCStateStore keeps in-flight transactions in memory, keyed by the random
// state value. Records are single-use and swept past their TTL whenever a
// new one is created. A process restart drops all in-flight flows; multiple
// instances cannot share the store.
type OIDCStateStore struct {
	mu  sync.Mutex
	ttl time.Duration
	txs map[string]*OIDCTransaction
	now func() time.Time
}

func NewOIDCStateStore(ttl time.Duration) *OIDCStateStore {
	return &OIDCStateStore{
		ttl: ttl,
		txs: make(map[string]*OIDCTransaction),
		now: time.Now,
	}
}

// Create registers a new transaction and returns its state key.
func (s *OIDCStateStore) Create(purpose string, userID *uuid.UUID) (string, *OIDCTransaction, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(raw)

	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	tx := &OIDCTransaction{
		Purpose:   purpose,
		UserID:    userID,
		Verifier:  oauth2.GenerateVerifier(),
		Nonce:     base64.RawURLEncoding.EncodeToString(nonceBytes),
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.txs[state] = tx
	return state, tx, nil
}

// Consume removes and returns the transaction for a state value. The record
// is deleted whether the lookup succeeds, is expired, or fails, so a state
// can never be replayed.
func (s *OIDCStateStore) Consume(state string) (*OIDCTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[state]
	if !ok {
		return nil, ErrStateInvalid
	}
	delete(s.txs, state)

	if s.now().Sub(tx.CreatedAt) > s.ttl {
		return nil, ErrStateExpired
	}
	return tx, nil
}

func (s *OIDCStateStore) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	for state, tx := range s.txs {
		if tx.CreatedAt.Before(cutoff) {
			delete(s.txs, state)
		}
	}
}
