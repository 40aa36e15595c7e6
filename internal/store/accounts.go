package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dkorchagin/shareup/internal/logging"
	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/shared"
)

// AccountsStore persists the handle → account mapping to one JSON file.
// It is safe for concurrent use: upload runs update statuses from their own
// goroutines while the dispatch loop reads.
type AccountsStore struct {
	path string
	log  logging.Logger
	mu   sync.Mutex
}

func NewAccountsStore(path string, log logging.Logger) *AccountsStore {
	return &AccountsStore{path: path, log: log}
}

// Load reads the accounts document. Missing or malformed files yield an
// empty collection after logging, never an error.
func (s *AccountsStore) Load(ctx context.Context) map[string]models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *AccountsStore) load(ctx context.Context) map[string]models.Account {
	accounts := map[string]models.Account{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error(ctx, "reading accounts document", "path", s.path, "error", err)
		}
		return accounts
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		s.log.Error(ctx, "malformed accounts document, using empty collection", "path", s.path, "error", err)
		return map[string]models.Account{}
	}
	return accounts
}

// Get returns one account by handle.
func (s *AccountsStore) Get(ctx context.Context, handle string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.load(ctx)[handle]
	if !ok {
		return models.Account{}, shared.ErrAccountNotFound
	}
	return acc, nil
}

// Add inserts a new account. The handle must not already be present.
func (s *AccountsStore) Add(ctx context.Context, handle, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.load(ctx)
	if _, ok := accounts[handle]; ok {
		return shared.ErrAccountExists
	}
	accounts[handle] = models.Account{
		Password: password,
		AddedAt:  time.Now().UTC(),
		Status:   models.StatusActive,
	}
	return s.save(accounts)
}

// Remove deletes an account by handle.
func (s *AccountsStore) Remove(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.load(ctx)
	if _, ok := accounts[handle]; !ok {
		return shared.ErrAccountNotFound
	}
	delete(accounts, handle)
	return s.save(accounts)
}

// ApplyOutcome records the terminal result of an upload run: status always,
// the public link when the run produced one, and the last-upload timestamp
// when the run reached the upload step. Unknown handles are ignored — the
// account may have been removed while the run was in flight.
func (s *AccountsStore) ApplyOutcome(ctx context.Context, handle string, outcome models.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.load(ctx)
	acc, ok := accounts[handle]
	if !ok {
		return nil
	}

	acc.Status = outcome.Status()
	if outcome.Link != "" {
		link := outcome.Link
		acc.PublicLink = &link
	}
	if outcome.ReachedUpload() {
		now := time.Now().UTC()
		acc.LastUpload = &now
	}
	accounts[handle] = acc
	return s.save(accounts)
}

func (s *AccountsStore) save(accounts map[string]models.Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write accounts %s: %w", s.path, err)
	}
	return nil
}
