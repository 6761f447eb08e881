package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"focusonmeal/models"

	"github.com/google/uuid"
)

// DeletionConfirmPhrase must be typed exactly before an account can be deleted.
const DeletionConfirmPhrase = "회원탈퇴"

const deletionFallbackMessage = "Failed to delete your account. Please try again."

// pendingDeletionTTL bounds how long the yes/no prompt can be answered.
const pendingDeletionTTL = 5 * time.Minute

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrConfirmMismatch  = errors.New("confirmation text does not match")
	ErrNotConfirmed     = errors.New("deletion was not confirmed")
	ErrDeletionInFlight = errors.New("account deletion already in progress")
	ErrDeletionExpired  = errors.New("deletion confirmation expired")
)

type DeletionInput struct {
	Password    string `form:"password" json:"password"`
	ConfirmText string `form:"confirm_text" json:"confirm_text"`
	Confirmed   bool   `form:"confirmed" json:"confirmed"`
	// Nonce answers a prompt issued by Stage.
	Nonce string `form:"nonce" json:"-"`
}

// Validate runs the text half of the double confirmation.
func (in DeletionInput) Validate() error {
	if in.Password == "" {
		return ErrPasswordRequired
	}
	if in.ConfirmText != DeletionConfirmPhrase {
		return ErrConfirmMismatch
	}
	return nil
}

type MemberDeleter interface {
	DeleteMember(ctx context.Context, token, password string) error
}

// DeletionError is what the form shows after the backend refused the request.
type DeletionError struct {
	Message string
	Err     error
}

func (e *DeletionError) Error() string { return e.Message }
func (e *DeletionError) Unwrap() error { return e.Err }

type AccountDeletionService struct {
	api      MemberDeleter
	sessions *SessionService

	now func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
	pending  map[string]pendingDeletion
}

type pendingDeletion struct {
	nonce     string
	input     DeletionInput
	expiresAt time.Time
}

func NewAccountDeletionService(api MemberDeleter, sessions *SessionService) *AccountDeletionService {
	return &AccountDeletionService{
		api:      api,
		sessions: sessions,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
		pending:  make(map[string]pendingDeletion),
	}
}

// Stage keeps a validated request on the server while the prompt is shown and
// returns the nonce the prompt posts back. A session has at most one staged request.
func (s *AccountDeletionService) Stage(sessionID string, in DeletionInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	nonce := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		if !now.Before(p.expiresAt) {
			delete(s.pending, id)
		}
	}
	in.Nonce = ""
	in.Confirmed = false
	s.pending[sessionID] = pendingDeletion{nonce: nonce, input: in, expiresAt: now.Add(pendingDeletionTTL)}
	return nonce, nil
}

// Resume hands back the request staged under nonce. A nonce can be used once.
func (s *AccountDeletionService) Resume(sessionID, nonce string) (DeletionInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[sessionID]
	if !ok || nonce == "" || p.nonce != nonce {
		return DeletionInput{}, ErrDeletionExpired
	}
	delete(s.pending, sessionID)
	if !s.now().Before(p.expiresAt) {
		return DeletionInput{}, ErrDeletionExpired
	}
	return p.input, nil
}

// Delete validates, asks the backend to delete the member and logs the session out.
// The request is only sent when the text check passes and the prompt was answered yes.
func (s *AccountDeletionService) Delete(ctx context.Context, sess *models.Session, in DeletionInput) error {
	if !sess.LoggedIn() {
		return ErrNotLoggedIn
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if !in.Confirmed {
		return ErrNotConfirmed
	}
	if !s.acquire(sess.ID) {
		return ErrDeletionInFlight
	}
	defer s.release(sess.ID)

	memberID := sess.MemberID

	if err := s.api.DeleteMember(ctx, sess.Token, in.Password); err != nil {
		log.Printf("member %s: delete failed: %v", memberID, err)
		msg := ServerMessage(err)
		if msg == "" {
			msg = deletionFallbackMessage
		}
		return &DeletionError{Message: msg, Err: err}
	}

	if err := s.sessions.Logout(ctx, sess); err != nil {
		// the account is gone either way; the cookie is dropped by the caller
		log.Printf("member %s: clearing session after delete: %v", memberID, err)
	}
	return nil
}

func (s *AccountDeletionService) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *AccountDeletionService) release(sessionID string) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}
