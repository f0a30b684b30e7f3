package bot

import (
	"testing"
	"time"
)

func TestSessionStoreSeedsPersona(t *testing.T) {
	ss := NewSessionStore("persona prompt", nil)

	session := ss.GetOrCreate("user-1")
	if len(session.Turns) != 1 {
		t.Fatalf("new session has %d turns, want 1", len(session.Turns))
	}
	if session.Turns[0].Role != RoleSystem {
		t.Errorf("turn 0 role = %q, want %q", session.Turns[0].Role, RoleSystem)
	}
	if session.Turns[0].Content.Text != "persona prompt" {
		t.Errorf("turn 0 content = %q, want persona prompt", session.Turns[0].Content.Text)
	}

	// GetOrCreate must not reseed an existing session.
	again := ss.GetOrCreate("user-1")
	if again != session {
		t.Error("GetOrCreate returned a different session for the same user")
	}
	if len(again.Turns) != 1 {
		t.Errorf("persona turn duplicated: %d turns", len(again.Turns))
	}
}

func TestSessionStorePersonaStaysFirst(t *testing.T) {
	ss := NewSessionStore("persona", nil)
	ss.GetOrCreate("u")

	ss.AppendTurn("u", TextTurn(RoleSystem, "context"))
	ss.AppendTurn("u", TextTurn(RoleUser, "hi"))
	ss.AppendTurn("u", TextTurn(RoleAssistant, "hello"))
	ss.AppendTurn("u", TextTurn(RoleUser, "more"))

	turns := ss.Transcript("u")
	if turns[0].Role != RoleSystem || turns[0].Content.Text != "persona" {
		t.Errorf("turn 0 = %+v, want the persona system turn", turns[0])
	}
	if len(turns) != 5 {
		t.Errorf("transcript has %d turns, want 5", len(turns))
	}
}

func TestSessionStoreDropsEmptyTurns(t *testing.T) {
	ss := NewSessionStore("persona", nil)
	ss.GetOrCreate("u")

	ss.AppendTurn("u", TextTurn(RoleUser, ""))
	ss.AppendTurn("u", Turn{Role: RoleUser})

	if got := ss.TurnCount("u"); got != 1 {
		t.Errorf("empty turns were appended: %d turns, want 1", got)
	}
}

func TestSessionStoreExpireIfStale(t *testing.T) {
	ss := NewSessionStore("persona", nil)
	timeout := 60 * time.Second
	base := time.Now()

	session := ss.GetOrCreate("u")
	session.LastActiveAt = base

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"within timeout", base.Add(30 * time.Second), false},
		{"exactly at timeout", base.Add(timeout), false},
		{"past timeout", base.Add(timeout + time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Recreate when a prior subtest deleted the session.
			if ss.Get("u") == nil {
				s := ss.GetOrCreate("u")
				s.LastActiveAt = base
			}
			if got := ss.ExpireIfStale("u", tt.now, timeout); got != tt.expired {
				t.Errorf("ExpireIfStale(now=%v) = %v, want %v", tt.now.Sub(base), got, tt.expired)
			}
		})
	}
}

func TestSessionStoreExpireDeletesOnce(t *testing.T) {
	ss := NewSessionStore("persona", nil)
	timeout := time.Minute
	base := time.Now()

	s := ss.GetOrCreate("u")
	s.LastActiveAt = base

	late := base.Add(2 * time.Minute)
	if !ss.ExpireIfStale("u", late, timeout) {
		t.Fatal("expected stale session to expire")
	}
	// Second check must not report a deletion again.
	if ss.ExpireIfStale("u", late, timeout) {
		t.Error("ExpireIfStale reported a second deletion for the same user")
	}
	if ss.Get("u") != nil {
		t.Error("session still present after expiry")
	}
}

func TestSessionStoreTouch(t *testing.T) {
	ss := NewSessionStore("persona", nil)
	s := ss.GetOrCreate("u")

	later := time.Now().Add(time.Hour)
	ss.Touch("u", later)
	if !s.LastActiveAt.Equal(later) {
		t.Errorf("LastActiveAt = %v, want %v", s.LastActiveAt, later)
	}

	// Touching an unknown user must not create a session.
	ss.Touch("ghost", later)
	if ss.Get("ghost") != nil {
		t.Error("Touch created a session for an unknown user")
	}
}
