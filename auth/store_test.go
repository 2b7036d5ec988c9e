package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "user123",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestStore_IsValid(t *testing.T) {
	s := NewStore()

	if s.IsValid() {
		t.Error("empty store should not be valid")
	}

	s.Save("not-a-jwt", nil)
	if s.IsValid() {
		t.Error("malformed token should not be valid")
	}

	s.Save(signedToken(t, time.Now().Add(-time.Hour)), nil)
	if s.IsValid() {
		t.Error("expired token should not be valid")
	}

	s.Save(signedToken(t, time.Now().Add(time.Hour)), nil)
	if !s.IsValid() {
		t.Error("future-dated token should be valid")
	}
}

func TestStore_SaveNotifiesListeners(t *testing.T) {
	s := NewStore()

	var gotToken string
	var gotRecord map[string]any
	s.OnChange(func(token string, record map[string]any) {
		gotToken = token
		gotRecord = record
	})

	s.Save("tok", map[string]any{"id": "r1"})

	if gotToken != "tok" {
		t.Errorf("expected token 'tok', got %q", gotToken)
	}
	if gotRecord["id"] != "r1" {
		t.Errorf("expected record id r1, got %v", gotRecord)
	}
}

func TestStore_OnChangeCancelRemovesOnlyThatListener(t *testing.T) {
	s := NewStore()

	calls1, calls2 := 0, 0
	cancel := s.OnChange(func(string, map[string]any) { calls1++ })
	s.OnChange(func(string, map[string]any) { calls2++ })

	s.Save("a", nil)
	cancel()
	s.Save("b", nil)

	if calls1 != 1 {
		t.Errorf("cancelled listener called %d times, want 1", calls1)
	}
	if calls2 != 2 {
		t.Errorf("remaining listener called %d times, want 2", calls2)
	}
}

func TestStore_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	s := NewStore()

	called := false
	s.OnChange(func(string, map[string]any) { panic("bad listener") })
	s.OnChange(func(string, map[string]any) { called = true })

	s.Save("tok", nil)

	if !called {
		t.Error("second listener should still run after a panic in the first")
	}
}

func TestStore_ClearEmptiesState(t *testing.T) {
	s := NewStore()
	s.Save(signedToken(t, time.Now().Add(time.Hour)), map[string]any{"id": "x"})

	s.Clear()

	if s.Token() != "" || s.Record() != nil {
		t.Error("clear should remove token and record")
	}
	if s.IsValid() {
		t.Error("cleared store should not be valid")
	}
}

func TestStore_ListenerMayReenter(t *testing.T) {
	s := NewStore()

	reentered := false
	s.OnChange(func(token string, _ map[string]any) {
		if token == "first" {
			reentered = true
			_ = s.Token()
			s.OnChange(func(string, map[string]any) {})
		}
	})

	s.Save("first", nil)

	if !reentered {
		t.Error("listener should be able to call back into the store")
	}
}
