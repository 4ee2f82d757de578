package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"atlasforge.io/internal/kv"
	"atlasforge.io/internal/rbac"
)

const sessionsKey = "sessions"

// Account is the credential-bearing view of a user the directory hands the
// session service. PasswordHash never leaves this package's callers.
type Account struct {
	ID           string
	Username     string
	Name         string
	Role         rbac.Role
	PasswordHash string
}

// Directory resolves usernames to accounts.
type Directory interface {
	FindByUsername(ctx context.Context, username string) (Account, error)
}

// Session is an authenticated identity. Exactly one role from the closed
// set; owned exclusively by the SessionService.
type Session struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        rbac.Role `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionService authenticates admins and tracks issued sessions. Sessions
// are written through to the durable kv store on every change so a process
// restart restores them without re-prompting credentials.
type SessionService struct {
	dir    Directory
	kv     *kv.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]Session // keyed by credential jti
}

// SessionOption configures the service.
type SessionOption func(*SessionService)

// WithSessionTTL overrides the credential lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(fn func() time.Time) SessionOption {
	return func(s *SessionService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewSessionService loads previously issued sessions from the kv store,
// dropping any that expired while the process was down.
func NewSessionService(dir Directory, store *kv.Store, secret string, opts ...SessionOption) (*SessionService, error) {
	if dir == nil {
		return nil, errors.New("auth: directory is required")
	}
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	s := &SessionService{
		dir:      dir,
		kv:       store,
		secret:   []byte(secret),
		ttl:      24 * time.Hour,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.kv != nil {
		if _, err := s.kv.Get(sessionsKey, &s.sessions); err != nil {
			return nil, fmt.Errorf("auth: restore sessions: %w", err)
		}
		if s.sessions == nil {
			s.sessions = make(map[string]Session)
		}
		s.pruneExpired()
	}
	return s, nil
}

// Login authenticates username/secret and issues a session credential.
// Unknown usernames and wrong secrets are indistinguishable to the caller,
// and both cost a bcrypt comparison.
func (s *SessionService) Login(ctx context.Context, username, password string) (Session, string, error) {
	acc, err := s.dir.FindByUsername(ctx, username)
	if err != nil {
		// Burn the same work as a real comparison before failing.
		_ = VerifyPassword(dummyHash, password)
		return Session{}, "", ErrInvalidCredentials
	}
	if err := VerifyPassword(acc.PasswordHash, password); err != nil {
		return Session{}, "", ErrInvalidCredentials
	}
	if _, err := rbac.ParseRole(string(acc.Role)); err != nil {
		return Session{}, "", ErrInvalidCredentials
	}

	now := s.now().UTC()
	credential, jti, err := signCredential(s.secret, acc, now, s.ttl)
	if err != nil {
		return Session{}, "", fmt.Errorf("auth: sign credential: %w", err)
	}
	sess := Session{
		UserID:      acc.ID,
		Username:    acc.Username,
		DisplayName: acc.Name,
		Role:        acc.Role,
		ExpiresAt:   now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[jti] = sess
	if err := s.persistLocked(); err != nil {
		delete(s.sessions, jti)
		return Session{}, "", err
	}
	return sess, credential, nil
}

// Current resolves a credential to its live session. Expired, forged, or
// logged-out credentials yield no session.
func (s *SessionService) Current(credential string) (Session, bool) {
	claims, err := parseCredential(s.secret, credential)
	if err != nil {
		return Session{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[claims.ID]
	if !ok {
		return Session{}, false
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.sessions, claims.ID)
		_ = s.persistLocked()
		return Session{}, false
	}
	return sess, true
}

// Logout destroys the session behind the credential. Logging out an already
// dead credential is a no-op.
func (s *SessionService) Logout(credential string) error {
	claims, err := parseCredential(s.secret, credential)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[claims.ID]; !ok {
		return nil
	}
	delete(s.sessions, claims.ID)
	return s.persistLocked()
}

func (s *SessionService) pruneExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	changed := false
	for jti, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, jti)
			changed = true
		}
	}
	if changed {
		_ = s.persistLocked()
	}
}

func (s *SessionService) persistLocked() error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(sessionsKey, s.sessions); err != nil {
		return fmt.Errorf("auth: persist sessions: %w", err)
	}
	return nil
}
