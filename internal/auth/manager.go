package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Store persists sessions by browser session id.
type Store interface {
	GetSession(ctx context.Context, sid string) (*Session, error)
	PutSession(ctx context.Context, sid string, s *Session) error
	DeleteSession(ctx context.Context, sid string) error
}

// Authenticator is the remote side of the login flow.
type Authenticator interface {
	AuthorizeURL(redirectTo, verifier string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, accessToken string) error
}

// Manager owns sessions for all browsers and fans session changes out to
// per-browser listeners.
type Manager struct {
	remote Authenticator
	store  Store
	logger *slog.Logger

	mu        sync.Mutex
	listeners map[string]map[int]func(*Session)
	nextID    int
}

func NewManager(remote Authenticator, store Store, logger *slog.Logger) *Manager {
	return &Manager{
		remote:    remote,
		store:     store,
		logger:    logger,
		listeners: make(map[string]map[int]func(*Session)),
	}
}

// BeginLogin returns the authorize URL and the verifier the callback needs.
func (m *Manager) BeginLogin(redirectTo string) (authorizeURL, verifier string, err error) {
	verifier, err = NewVerifier()
	if err != nil {
		return "", "", fmt.Errorf("generating verifier: %w", err)
	}
	return m.remote.AuthorizeURL(redirectTo, verifier), verifier, nil
}

// CompleteLogin exchanges the callback code and binds the session to sid.
func (m *Manager) CompleteLogin(ctx context.Context, sid, code, verifier string) (*Session, error) {
	if code == "" || verifier == "" {
		return nil, fmt.Errorf("%w: missing code or verifier", ErrExchangeFailed)
	}
	sess, err := m.remote.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	if err := m.store.PutSession(ctx, sid, sess); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	m.logger.Info("user signed in", "user_id", sess.User.ID)
	m.notify(sid, sess)
	return sess, nil
}

// refreshLeeway is how close to expiry a session is refreshed.
const refreshLeeway = time.Minute

// Session loads the session bound to sid, refreshing it when the access
// token is about to expire. A session that cannot be refreshed is dropped.
func (m *Manager) Session(ctx context.Context, sid string) (*Session, error) {
	sess, err := m.store.GetSession(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.ExpiresAt.IsZero() || time.Until(sess.ExpiresAt) > refreshLeeway {
		return sess, nil
	}
	if sess.RefreshToken == "" {
		return nil, m.expire(ctx, sid, sess, errors.New("no refresh token"))
	}

	fresh, err := m.remote.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		return nil, m.expire(ctx, sid, sess, err)
	}
	if fresh.User.ID == "" {
		fresh.User = sess.User
	}
	if err := m.store.PutSession(ctx, sid, fresh); err != nil {
		return nil, fmt.Errorf("storing refreshed session: %w", err)
	}
	m.logger.Debug("session refreshed", "user_id", fresh.User.ID)
	m.notify(sid, fresh)
	return fresh, nil
}

func (m *Manager) expire(ctx context.Context, sid string, sess *Session, cause error) error {
	m.logger.Warn("session expired", "user_id", sess.User.ID, "error", cause)
	if err := m.store.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	m.notify(sid, nil)
	return ErrNoSession
}

// SignOut revokes the session remotely when possible and always forgets it
// locally.
func (m *Manager) SignOut(ctx context.Context, sid string) error {
	sess, err := m.store.GetSession(ctx, sid)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.remote.Logout(ctx, sess.AccessToken); err != nil {
		m.logger.Warn("remote sign-out failed", "user_id", sess.User.ID, "error", err)
	}
	if err := m.store.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	m.notify(sid, nil)
	return nil
}

// Provider scopes the manager to one browser.
func (m *Manager) Provider(sid string) SessionProvider {
	return &provider{m: m, sid: sid}
}

func (m *Manager) subscribe(sid string, fn func(*Session)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	if m.listeners[sid] == nil {
		m.listeners[sid] = make(map[int]func(*Session))
	}
	m.listeners[sid][id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners[sid], id)
		if len(m.listeners[sid]) == 0 {
			delete(m.listeners, sid)
		}
	}
}

func (m *Manager) notify(sid string, sess *Session) {
	m.mu.Lock()
	fns := make([]func(*Session), 0, len(m.listeners[sid]))
	for _, fn := range m.listeners[sid] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}

type provider struct {
	m   *Manager
	sid string
}

func (p *provider) CurrentSession(ctx context.Context) (*Session, error) {
	return p.m.Session(ctx, p.sid)
}

func (p *provider) OnChange(fn func(*Session)) func() {
	return p.m.subscribe(p.sid, fn)
}

func (p *provider) SignOut(ctx context.Context) error {
	return p.m.SignOut(ctx, p.sid)
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (s *MemoryStore) GetSession(_ context.Context, sid string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, ErrNoSession
	}
	return &sess, nil
}

func (s *MemoryStore) PutSession(_ context.Context, sid string, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = *sess
	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}
