// session.go implements the per-user conversation session store. Each user
// has a rolling transcript seeded with the persona prompt and an idle-timeout
// lifecycle: stale sessions are deleted on the user's next message, and the
// deletion is observable (the director sends a timeout notice).
package bot

import (
	"log/slog"
	"sync"
	"time"
)

// Session holds one user's conversation state.
type Session struct {
	// Turns is the ordered transcript. Turns[0] is always the persona
	// system turn for the life of the session.
	Turns []Turn

	// LastActiveAt is the timestamp of the user's last counted exchange.
	LastActiveAt time.Time
}

// SessionStore manages active sessions keyed by user ID. A single global
// mutex guards the map and all transcript mutations; expected volume is low
// and the lock is never held across network calls.
type SessionStore struct {
	// persona is the system prompt seeding every new session.
	persona string

	sessions map[string]*Session
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewSessionStore creates a session store seeding new sessions with persona.
func NewSessionStore(persona string, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		persona:  persona,
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// GetOrCreate returns the user's session, creating one seeded with the
// persona system turn when none exists.
func (ss *SessionStore) GetOrCreate(userID string) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.getOrCreateLocked(userID)
}

func (ss *SessionStore) getOrCreateLocked(userID string) *Session {
	if session, exists := ss.sessions[userID]; exists {
		return session
	}

	session := &Session{
		Turns:        []Turn{TextTurn(RoleSystem, ss.persona)},
		LastActiveAt: time.Now(),
	}
	ss.sessions[userID] = session

	ss.logger.Info("session created", "user_id", userID)
	return session
}

// Get returns the user's session, or nil when none exists.
func (ss *SessionStore) Get(userID string) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.sessions[userID]
}

// Touch updates the user's last-activity timestamp. No-op when the user has
// no session.
func (ss *SessionStore) Touch(userID string, now time.Time) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if session, exists := ss.sessions[userID]; exists {
		session.LastActiveAt = now
	}
}

// ExpireIfStale deletes the user's session when now is more than timeout
// past the last activity, returning true when a session was deleted.
// The caller is responsible for sending the user-visible timeout notice.
func (ss *SessionStore) ExpireIfStale(userID string, now time.Time, timeout time.Duration) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session, exists := ss.sessions[userID]
	if !exists {
		return false
	}
	if now.Sub(session.LastActiveAt) <= timeout {
		return false
	}

	delete(ss.sessions, userID)
	ss.logger.Info("session expired",
		"user_id", userID,
		"idle", now.Sub(session.LastActiveAt).String(),
	)
	return true
}

// AppendTurn appends a turn to the user's transcript, creating the session
// if needed. Turns with empty content are dropped.
func (ss *SessionStore) AppendTurn(userID string, turn Turn) {
	if turn.Content.Empty() {
		return
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	session := ss.getOrCreateLocked(userID)
	session.Turns = append(session.Turns, turn)
}

// TurnCount returns the transcript length for the user, zero when no
// session exists.
func (ss *SessionStore) TurnCount(userID string) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if session, exists := ss.sessions[userID]; exists {
		return len(session.Turns)
	}
	return 0
}

// Transcript returns a copy of the user's transcript, creating the session
// if needed. The copy keeps concurrent appends from racing the HTTP encode.
func (ss *SessionStore) Transcript(userID string) []Turn {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session := ss.getOrCreateLocked(userID)
	out := make([]Turn, len(session.Turns))
	copy(out, session.Turns)
	return out
}

// Count returns the number of active sessions.
func (ss *SessionStore) Count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}
