package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/minaqr/botserver/internal/qr"
)

func TestGetReturnsDefaults(t *testing.T) {
	s := NewStore()
	sess := s.Get(1)

	if sess.Authenticated {
		t.Fatalf("fresh session must not be authenticated")
	}
	if sess.Email != "" {
		t.Fatalf("fresh session must not carry an email")
	}
	if sess.Quality != qr.QualityNormal || sess.FillColor != "black" || sess.BackgroundColor != "white" || sess.EmblemKey != "" {
		t.Fatalf("unexpected defaults: %+v", sess)
	}
}

func TestLoginPreservesVisuals(t *testing.T) {
	s := NewStore()
	s.SetColors(1, "red", "yellow")
	s.Login(1, "a@x.com")

	sess := s.Get(1)
	if !sess.Authenticated || sess.Email != "a@x.com" {
		t.Fatalf("login did not authenticate: %+v", sess)
	}
	if sess.FillColor != "red" || sess.BackgroundColor != "yellow" {
		t.Fatalf("login clobbered visuals: %+v", sess)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	s := NewStore()
	s.Login(1, "a@x.com")
	s.SetColors(1, "red", "yellow")
	s.SetEmblem(1, "emblems/1.png")
	s.Logout(1)

	sess := s.Get(1)
	if sess.Authenticated || sess.Email != "" || sess.FillColor != "black" || sess.EmblemKey != "" {
		t.Fatalf("logout left state behind: %+v", sess)
	}
}

func TestResetVisualsPreservesAuth(t *testing.T) {
	s := NewStore()
	s.Login(1, "a@x.com")
	s.ToggleQuality(1)
	s.SetColors(1, "red", "yellow")
	s.SetEmblem(1, "emblems/1.png")

	s.ResetVisuals(1)

	sess := s.Get(1)
	if !sess.Authenticated || sess.Email != "a@x.com" {
		t.Fatalf("reset dropped authentication: %+v", sess)
	}
	if sess.Quality != qr.QualityNormal || sess.FillColor != "black" || sess.BackgroundColor != "white" || sess.EmblemKey != "" {
		t.Fatalf("reset did not restore defaults: %+v", sess)
	}
}

func TestToggleQuality(t *testing.T) {
	s := NewStore()
	if got := s.ToggleQuality(1); got != qr.QualityHigh {
		t.Fatalf("first toggle: got %q", got)
	}
	if got := s.ToggleQuality(1); got != qr.QualityNormal {
		t.Fatalf("second toggle: got %q", got)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	s := NewStore()
	s.Login(1, "a@x.com")
	s.SetColors(2, "red", "yellow")

	if s.Get(2).Authenticated {
		t.Fatalf("user 2 inherited user 1's login")
	}
	if s.Get(1).FillColor != "black" {
		t.Fatalf("user 1 inherited user 2's colors")
	}
}

func TestConcurrentMutations(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			s.Login(userID, fmt.Sprintf("user%d@x.com", userID))
			s.ToggleQuality(userID)
			s.SetColors(userID, "red", "white")
			_ = s.Get(userID)
		}(int64(i % 5))
	}
	wg.Wait()

	for userID := int64(0); userID < 5; userID++ {
		sess := s.Get(userID)
		if !sess.Authenticated || sess.Email == "" {
			t.Fatalf("user %d ended in inconsistent state: %+v", userID, sess)
		}
	}
}
