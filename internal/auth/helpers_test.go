package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// fakeDirectory is an in-memory AccountDirectory.
type fakeDirectory struct {
	mu          sync.Mutex
	accounts    map[uint64]*Account
	byName      map[string]uint64
	findErr     error // forced storage failure on reads
	updateErr   error // forced storage failure on writes
	updateCalls int
}

func newFakeDirectory(accounts ...*Account) *fakeDirectory {
	d := &fakeDirectory{
		accounts: make(map[uint64]*Account),
		byName:   make(map[string]uint64),
	}
	for _, a := range accounts {
		d.accounts[a.ID] = a
		d.byName[a.Username] = a.ID
	}
	return d
}

func (d *fakeDirectory) FindByUsername(_ context.Context, username string) (*Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	id, ok := d.byName[username]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return d.accounts[id], nil
}

func (d *fakeDirectory) FindByID(_ context.Context, id uint64) (*Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	a, ok := d.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

func (d *fakeDirectory) UpdateLoginState(_ context.Context, id uint64, failedAttempts int, lockUntil *time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return d.updateErr
	}
	d.updateCalls++
	if a, ok := d.accounts[id]; ok {
		a.FailedLoginAttempts = failedAttempts
		a.LockUntil = lockUntil
	}
	return nil
}

type tokenRecord struct {
	accountID uint64
	digest    string
	expiresAt time.Time
	revoked   bool
}

// memTokenStore is an in-memory RefreshTokenStore.
type memTokenStore struct {
	mu          sync.Mutex
	records     []*tokenRecord
	storeErr    error // forced failure on Store
	unavailable bool  // every lookup reports LookupUnavailable
}

func (s *memTokenStore) Store(_ context.Context, accountID uint64, digest string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.records = append(s.records, &tokenRecord{accountID: accountID, digest: digest, expiresAt: expiresAt})
	return nil
}

func (s *memTokenStore) Consume(_ context.Context, accountID uint64, digest string) LookupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return LookupUnavailable
	}
	for _, r := range s.records {
		if r.accountID == accountID && r.digest == digest && !r.revoked && r.expiresAt.After(time.Now()) {
			r.revoked = true
			return LookupFound
		}
	}
	return LookupNotFound
}

func (s *memTokenStore) RevokeAllForAccount(_ context.Context, accountID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.records {
		if r.accountID == accountID && !r.revoked {
			r.revoked = true
			n++
		}
	}
	return n, nil
}

// memBlacklist is an in-memory AccessTokenBlacklist.
type memBlacklist struct {
	mu          sync.Mutex
	entries     map[string]time.Time
	addErr      error
	unavailable bool
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{entries: make(map[string]time.Time)}
}

func (b *memBlacklist) Add(_ context.Context, signature string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.addErr != nil {
		return b.addErr
	}
	b.entries[signature] = expiresAt
	return nil
}

func (b *memBlacklist) Check(_ context.Context, signature string) LookupStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unavailable {
		return LookupUnavailable
	}
	if _, ok := b.entries[signature]; ok {
		return LookupFound
	}
	return LookupNotFound
}

// plainVerify is the injected password capability for tests: digests are
// "digest:" + plaintext, no bcrypt cost on the test path.
func plainVerify(hash, plain string) bool { return hash == "digest:"+plain }

func plainDigest(plain string) string { return "digest:" + plain }

func testAccount(id uint64, username string, role Role) *Account {
	return &Account{
		ID:           id,
		Username:     username,
		PasswordHash: plainDigest("correct-horse"),
		Role:         role,
		IsActive:     true,
	}
}

// sessionFixture wires a SessionManager over the in-memory fakes.
type sessionFixture struct {
	dir       *fakeDirectory
	tokens    *memTokenStore
	blacklist *memBlacklist
	issuer    *TokenIssuer
	sessions  *SessionManager
	lockout   *Lockout
}

func newSessionFixture(accounts ...*Account) *sessionFixture {
	dir := newFakeDirectory(accounts...)
	tokens := &memTokenStore{}
	blacklist := newMemBlacklist()
	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	logger := zap.NewNop()
	lockout := NewLockout(dir)
	verifier := NewCredentialVerifier(dir, lockout, plainVerify, logger)
	return &sessionFixture{
		dir:       dir,
		tokens:    tokens,
		blacklist: blacklist,
		issuer:    issuer,
		lockout:   lockout,
		sessions:  NewSessionManager(dir, verifier, issuer, tokens, blacklist, logger),
	}
}
