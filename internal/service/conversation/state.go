package conversation

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/proptalk/backend/internal/model/call"
	"github.com/proptalk/backend/internal/service/ai"
)

// ErrSessionNotFound is returned when no live session exists for a call sid.
var ErrSessionNotFound = errors.New("call session not found")

// sessionTTL bounds how long a call session may live. Lookups past the TTL
// behave as not-found and evict the entry lazily.
const sessionTTL = time.Hour

// Session is the per-call dialogue state, keyed by the provider call sid.
type Session struct {
	CallSid           string         `json:"callSid"`
	Direction         call.Direction `json:"direction"`
	Context           ai.CallContext `json:"context"`
	History           []call.Turn    `json:"history"`
	VoiceAgentID      string         `json:"voiceAgentId"`
	RealEstateAgentID string         `json:"realEstateAgentId"`
	ContactID         string         `json:"contactId,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	TurnCount         int            `json:"turnCount"` // user turns only, derived from History
	QuotaNotified     bool           `json:"quotaNotified,omitempty"`
}

// SessionStore is the key-value seam under the state service. The in-process
// map suits a single instance; swap it for an external cache to run more
// than one. TTL decisions live in the Service, not here.
type SessionStore interface {
	Get(callSid string) (*Session, bool)
	Put(callSid string, s *Session)
	Delete(callSid string) bool
	All() []*Session
}

type memoryStore struct {
	sessions map[string]*Session
}

// NewMemoryStore returns the in-process session map. Callers synchronize;
// the Service owns the lock.
func NewMemoryStore() SessionStore {
	return &memoryStore{sessions: make(map[string]*Session)}
}

func (m *memoryStore) Get(callSid string) (*Session, bool) {
	s, ok := m.sessions[callSid]
	return s, ok
}

func (m *memoryStore) Put(callSid string, s *Session) {
	m.sessions[callSid] = s
}

func (m *memoryStore) Delete(callSid string) bool {
	if _, ok := m.sessions[callSid]; !ok {
		return false
	}
	delete(m.sessions, callSid)
	return true
}

func (m *memoryStore) All() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// State manages live call sessions with TTL eviction.
type State struct {
	mu    sync.RWMutex
	store SessionStore
	now   func() time.Time
}

// NewState bootstraps the session manager over the given store.
func NewState(store SessionStore) *State {
	return &State{store: store, now: time.Now}
}

// Get returns a snapshot of the session, or ErrSessionNotFound if it does
// not exist or has outlived its TTL (expired entries are evicted here).
func (s *State) Get(callSid string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, err := s.liveLocked(callSid)
	if err != nil {
		return Session{}, err
	}
	return snapshot(live), nil
}

// liveLocked fetches the mutable session, applying lazy TTL eviction.
// Callers hold s.mu.
func (s *State) liveLocked(callSid string) (*Session, error) {
	sess, ok := s.store.Get(callSid)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.now().Sub(sess.CreatedAt) > sessionTTL {
		s.store.Delete(callSid)
		log.Printf("[state] session expired for call %s", callSid)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Create registers a new session for the call. At most one session exists
// per call sid; creating over a live session replaces it.
func (s *State) Create(callSid string, direction call.Direction, voiceAgentID, realEstateAgentID, contactID string) Session {
	now := s.now().UTC()
	sess := &Session{
		CallSid:           callSid,
		Direction:         direction,
		History:           make([]call.Turn, 0, 8),
		VoiceAgentID:      voiceAgentID,
		RealEstateAgentID: realEstateAgentID,
		ContactID:         contactID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	s.mu.Lock()
	s.store.Put(callSid, sess)
	s.mu.Unlock()

	log.Printf("[state] created session for call %s (%s)", callSid, direction)
	return snapshot(sess)
}

// AppendTurn adds an utterance to the session history. The user-turn count
// is recomputed from the history on every append.
func (s *State) AppendTurn(callSid, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(callSid)
	if err != nil {
		log.Printf("[state] cannot append turn, no session for call %s", callSid)
		return err
	}

	sess.History = append(sess.History, call.Turn{
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
	})
	sess.UpdatedAt = s.now().UTC()
	sess.TurnCount = countUserTurns(sess.History)
	return nil
}

// History returns a copy of the session's turn log, empty if the session is
// gone.
func (s *State) History(callSid string) []call.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(callSid)
	if err != nil {
		return nil
	}
	history := make([]call.Turn, len(sess.History))
	copy(history, sess.History)
	return history
}

// SetContext stores the built context on the session, once. Returns false
// if the session is gone or the context was already populated.
func (s *State) SetContext(callSid string, ctx ai.CallContext) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(callSid)
	if err != nil {
		return false
	}
	if !sess.Context.Empty() {
		return false
	}
	sess.Context = ctx
	sess.UpdatedAt = s.now().UTC()
	return true
}

// MarkQuotaNotified records that the quota apology was spoken on this call
// and reports whether it had already been spoken before.
func (s *State) MarkQuotaNotified(callSid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(callSid)
	if err != nil {
		return false
	}
	already := sess.QuotaNotified
	sess.QuotaNotified = true
	return already
}

// Clear removes the session, reporting whether it existed.
func (s *State) Clear(callSid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Delete(callSid) {
		log.Printf("[state] cleared session for call %s", callSid)
		return true
	}
	return false
}

// SweepExpired proactively evicts sessions past their TTL and returns how
// many were removed. Lazy eviction keeps the store correct without this;
// the sweep only bounds memory.
func (s *State) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, sess := range s.store.All() {
		if now.Sub(sess.CreatedAt) > sessionTTL {
			s.store.Delete(sess.CallSid)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[state] swept %d expired sessions", removed)
	}
	return removed
}

// Stats summarizes live sessions for monitoring.
type Stats struct {
	Total    int `json:"total"`
	Inbound  int `json:"inbound"`
	Outbound int `json:"outbound"`
}

// Stats counts live sessions by direction.
func (s *State) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, sess := range s.store.All() {
		st.Total++
		if sess.Direction.IsOutbound() {
			st.Outbound++
		} else {
			st.Inbound++
		}
	}
	return st
}

func countUserTurns(history []call.Turn) int {
	n := 0
	for _, t := range history {
		if t.Role == call.RoleUser {
			n++
		}
	}
	return n
}

func snapshot(sess *Session) Session {
	out := *sess
	out.History = make([]call.Turn, len(sess.History))
	copy(out.History, sess.History)
	return out
}
