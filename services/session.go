package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"focusonmeal/models"
	"focusonmeal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotLoggedIn     = errors.New("not logged in")
)

// SessionStore persists sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (g *GormSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := g.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

func (g *GormSessionStore) Save(ctx context.Context, s *models.Session) error {
	if err := g.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (g *GormSessionStore) Delete(ctx context.Context, id string) error {
	if err := g.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (g *GormSessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Where("updated_at < ?", before).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MemorySessionStore keeps sessions in process. Used when no database is configured.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.Session)}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *models.Session) error {
	if s.ID == "" {
		return errors.New("session id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

type Authenticator interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

// SessionService owns the login/logout lifecycle. Only logged-in sessions are stored.
type SessionService struct {
	store SessionStore
	auth  Authenticator
	now   func() time.Time
}

type SessionOption func(*SessionService)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

func NewSessionService(store SessionStore, auth Authenticator, opts ...SessionOption) *SessionService {
	s := &SessionService{store: store, auth: auth, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve loads the session with the given id. An empty id starts a fresh anonymous
// session; an id with no stored row (or an expired one) stays anonymous under that id.
func (s *SessionService) Resolve(ctx context.Context, id string) (*models.Session, bool, error) {
	if id == "" {
		return &models.Session{ID: uuid.NewString()}, true, nil
	}
	sess, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		if sess.UpdatedAt.Before(s.cutoff()) {
			if err := s.store.Delete(ctx, id); err != nil {
				return nil, false, err
			}
			return &models.Session{ID: id}, false, nil
		}
		return sess, false, nil
	case errors.Is(err, ErrSessionNotFound):
		return &models.Session{ID: id}, false, nil
	default:
		return nil, false, err
	}
}

// Login authenticates against the backend and moves the session to a new id.
// Callers must re-issue the cookie for sess.ID.
func (s *SessionService) Login(ctx context.Context, sess *models.Session, req LoginRequest) error {
	if req.MemberID == "" || req.Password == "" {
		return errors.New("member id and password are required")
	}
	out, err := s.auth.Login(ctx, req)
	if err != nil {
		return err
	}
	next := &models.Session{
		ID:             uuid.NewString(),
		Token:          out.Token,
		MemberID:       out.MemberID,
		MemberName:     out.MemberName,
		MemberNickname: out.MemberNickname,
		AdminYN:        out.AdminYN,
	}
	if next.MemberID == "" {
		next.MemberID = req.MemberID
	}
	if err := s.store.Save(ctx, next); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sess.ID); err != nil {
		log.Printf("session: dropping pre-login session: %v", err)
	}
	*sess = *next
	return nil
}

// Logout clears token, memberId, memberName, memberNickname and adminYn and forgets the session.
func (s *SessionService) Logout(ctx context.Context, sess *models.Session) error {
	sess.Clear()
	return s.store.Delete(ctx, sess.ID)
}

// Sweep removes sessions older than the cookie lifetime.
func (s *SessionService) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.cutoff())
}

func (s *SessionService) cutoff() time.Time {
	return s.now().Add(-utils.SessionTTL())
}
