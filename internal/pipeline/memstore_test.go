package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edvin/sendline/internal/ledger"
	"github.com/edvin/sendline/internal/model"
)

// memStore mirrors the ledger's SQL semantics in memory.
type memStore struct {
	mu          sync.Mutex
	emails      map[int64]*model.Email
	usage       map[int64]model.UsageRecord
	transitions map[int64][]string
	commitErr   error
	// stale marks processing rows whose claim lease has expired.
	stale map[int64]bool
	// heldFor is the RetryAfter reported for processing rows under a live claim.
	heldFor time.Duration
}

func newMemStore(emails ...*model.Email) *memStore {
	s := &memStore{
		emails:      map[int64]*model.Email{},
		usage:       map[int64]model.UsageRecord{},
		transitions: map[int64][]string{},
		stale:       map[int64]bool{},
		heldFor:     30 * time.Second,
	}
	for _, e := range emails {
		s.emails[e.ID] = e
		s.transitions[e.ID] = []string{e.Status}
	}
	return s
}

func (s *memStore) setStatus(e *model.Email, status string) {
	e.Status = status
	s.transitions[e.ID] = append(s.transitions[e.ID], status)
}

func (s *memStore) ClaimEmail(ctx context.Context, id int64) (*model.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return nil, fmt.Errorf("claim email %d: %w", id, ledger.ErrEmailNotFound)
	}
	reclaim := e.Status == model.StatusProcessing && s.stale[id]
	if !model.IsClaimable(e.Status) && !reclaim {
		return nil, fmt.Errorf("claim email %d: %w", id, s.miss(e))
	}
	delete(s.stale, id)
	s.setStatus(e, model.StatusProcessing)
	cp := *e
	return &cp, nil
}

func (s *memStore) CommitSent(ctx context.Context, email *model.Email, messageID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		err := s.commitErr
		s.commitErr = nil
		return err
	}
	e := s.emails[email.ID]
	if e.Status != model.StatusProcessing && e.Status != model.StatusSent {
		return fmt.Errorf("mark email %d sent: %w", email.ID, ledger.ErrNotOwner)
	}
	if _, dup := s.usage[email.ID]; !dup {
		s.usage[email.ID] = model.UsageRecord{AccountID: email.AccountID, EmailID: email.ID, Month: model.BillingMonth(sentAt)}
	}
	if e.ProviderMessageID == nil {
		e.ProviderMessageID = &messageID
	}
	if e.SentAt == nil {
		e.SentAt = &sentAt
	}
	e.LastError = nil
	if e.Status != model.StatusSent {
		s.setStatus(e, model.StatusSent)
	}
	return nil
}

func (s *memStore) RecordFailure(ctx context.Context, id int64, errMsg string, maxAttempts int) (ledger.FailureOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.emails[id]
	if e == nil || e.Status != model.StatusProcessing {
		return ledger.FailureOutcome{}, fmt.Errorf("record failure for email %d: %w", id, ledger.ErrNotOwner)
	}
	e.Attempts++
	e.LastError = &errMsg
	if e.Attempts >= maxAttempts {
		s.setStatus(e, model.StatusFailed)
	} else {
		s.setStatus(e, model.StatusRetrying)
	}
	return ledger.FailureOutcome{Attempts: e.Attempts, Status: e.Status}, nil
}

func (s *memStore) AbandonEmail(ctx context.Context, id int64, reason string) (*model.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.emails[id]
	if e == nil {
		return nil, fmt.Errorf("abandon email %d: %w", id, ledger.ErrEmailNotFound)
	}
	if model.IsTerminal(e.Status) || (e.Status == model.StatusProcessing && !s.stale[id]) {
		return nil, fmt.Errorf("abandon email %d: %w", id, s.miss(e))
	}
	if e.LastError == nil {
		e.LastError = &reason
	}
	s.setStatus(e, model.StatusFailed)
	cp := *e
	return &cp, nil
}

// miss is the error the ledger reports when a conditional update on e
// matches nothing.
func (s *memStore) miss(e *model.Email) error {
	if e.Status == model.StatusProcessing {
		return &ledger.ClaimHeldError{EmailID: e.ID, RetryAfter: s.heldFor}
	}
	return ledger.ErrClaimMiss
}

func (s *memStore) email(id int64) model.Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.emails[id]
}

func (s *memStore) usageCount(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usage[id]; ok {
		return 1
	}
	return 0
}
