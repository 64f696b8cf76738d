package account

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a Store kept in process memory. It backs tests and the
// STORE_DRIVER=memory mode.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*Account
	byEmail map[string]int64
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[int64]*Account),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

// InsertIfAbsent stores a copy of acc unless its email is taken.
func (s *MemoryStore) InsertIfAbsent(_ context.Context, acc *Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[acc.Email]; taken {
		return false, nil
	}

	s.nextID++
	acc.ID = s.nextID
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = s.now().UTC()
	}
	acc.UpdatedAt = acc.CreatedAt

	stored := *acc
	s.byID[stored.ID] = &stored
	s.byEmail[stored.Email] = stored.ID
	return true, nil
}

// FindByID returns a copy of the stored account.
func (s *MemoryStore) FindByID(_ context.Context, id int64) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

// FindByEmail looks up a normalized email.
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.FindByID(ctx, id)
}

// FindByVerificationToken scans for a matching verification digest.
func (s *MemoryStore) FindByVerificationToken(_ context.Context, digest string) (*Account, error) {
	return s.findBy(func(a *Account) bool { return a.VerificationTokenHash == digest })
}

// FindByResetToken scans for a matching reset digest.
func (s *MemoryStore) FindByResetToken(_ context.Context, digest string) (*Account, error) {
	return s.findBy(func(a *Account) bool { return a.ResetTokenHash == digest })
}

func (s *MemoryStore) findBy(match func(*Account) bool) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acc := range s.byID {
		if match(acc) {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

// Update applies mutate to a copy under the write lock and keeps the copy
// only when mutate returns nil.
func (s *MemoryStore) Update(_ context.Context, id int64, mutate func(*Account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return ErrAccountNotFound
	}

	cp := *acc
	if err := mutate(&cp); err != nil {
		return err
	}
	cp.ID = acc.ID
	cp.Email = acc.Email
	cp.UpdatedAt = s.now().UTC()
	s.byID[id] = &cp
	return nil
}
