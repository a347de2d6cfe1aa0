package lobby

import (
	"testing"
	"time"
)

func readyAll(l *Lobby, ids ...string) {
	for _, id := range ids {
		l.SetReady(id, true)
	}
}

func TestJoinDefaultsToDefender(t *testing.T) {
	l := New(1, 2, 3)
	e := l.Join("p1", "Alice", time.Now())
	if e.Role != RoleDefender {
		t.Fatalf("role = %q, want defender", e.Role)
	}
	if e.Ready {
		t.Fatal("joined ready")
	}
	// Re-join returns the same entry.
	e.Role = RoleGhost
	if again := l.Join("p1", "Alice", time.Now()); again.Role != RoleGhost {
		t.Fatal("re-join replaced the existing entry")
	}
}

func TestSelectRoleValidation(t *testing.T) {
	l := New(1, 1, 3)
	l.Join("p1", "Alice", time.Now())
	l.Join("p2", "Bob", time.Now())

	if reason := l.SelectRole("p1", "vampire"); reason != ReasonInvalidRole {
		t.Fatalf("bogus role reason = %q", reason)
	}
	if reason := l.SelectRole("nobody", RoleGhost); reason != ReasonInvalidRole {
		t.Fatalf("unknown player reason = %q", reason)
	}
	if reason := l.SelectRole("p1", RoleGhost); reason != "" {
		t.Fatalf("first ghost rejected: %q", reason)
	}
	if reason := l.SelectRole("p2", RoleGhost); reason != ReasonGhostSlotsFull {
		t.Fatalf("over-cap ghost reason = %q", reason)
	}
	// Re-selecting the role you already hold is not a slot claim.
	if reason := l.SelectRole("p1", RoleGhost); reason != "" {
		t.Fatalf("idempotent re-select rejected: %q", reason)
	}
}

func TestRoleChangeClearsReady(t *testing.T) {
	l := New(1, 2, 3)
	l.Join("p1", "Alice", time.Now())
	l.SetReady("p1", true)
	l.SelectRole("p1", RoleGhost)
	if l.Get("p1").Ready {
		t.Fatal("ready survived a role change")
	}
}

func TestCanStartReasons(t *testing.T) {
	l := New(2, 1, 3)
	l.Join("p1", "Alice", time.Now())
	if reason := l.CanStart(); reason != ReasonNotEnough {
		t.Fatalf("reason = %q, want not enough players", reason)
	}

	l.Join("p2", "Bob", time.Now())
	if reason := l.CanStart(); reason != ReasonNotAllReady {
		t.Fatalf("reason = %q, want not all ready", reason)
	}

	readyAll(l, "p1", "p2")
	l.SelectRole("p1", RoleGhost)
	readyAll(l, "p1") // role change cleared it
	if reason := l.CanStart(); reason != "" {
		t.Fatalf("valid roster rejected: %q", reason)
	}
}

func TestCanStartNeedsDefender(t *testing.T) {
	l := New(1, 2, 3)
	l.Join("p1", "Alice", time.Now())
	l.SelectRole("p1", RoleGhost)
	l.SetReady("p1", true)
	if reason := l.CanStart(); reason != ReasonNoDefender {
		t.Fatalf("reason = %q, want no defender", reason)
	}
}

func TestCountdownFlow(t *testing.T) {
	l := New(1, 2, 3)
	l.Join("p1", "Alice", time.Now())
	l.SetReady("p1", true)

	secs, reason := l.RequestStart()
	if reason != "" || secs != 3 {
		t.Fatalf("start = (%d, %q)", secs, reason)
	}
	if l.State() != StateStarting {
		t.Fatalf("state = %v, want starting", l.State())
	}

	// A second request during the countdown is rejected, not queued.
	if _, reason := l.RequestStart(); reason != ReasonAlreadyRunning {
		t.Fatalf("re-entrant start reason = %q", reason)
	}

	if rem, started := l.TickCountdown(); rem != 2 || started {
		t.Fatalf("tick 1 = (%d, %v)", rem, started)
	}
	if rem, started := l.TickCountdown(); rem != 1 || started {
		t.Fatalf("tick 2 = (%d, %v)", rem, started)
	}
	if rem, started := l.TickCountdown(); rem != 0 || !started {
		t.Fatalf("tick 3 = (%d, %v)", rem, started)
	}
	if l.State() != StateActive {
		t.Fatalf("state = %v, want active", l.State())
	}

	// Start while active: rejected.
	if _, reason := l.RequestStart(); reason != ReasonAlreadyRunning {
		t.Fatalf("start while active reason = %q", reason)
	}
}

func TestCountdownNotResetByJoins(t *testing.T) {
	l := New(1, 2, 2)
	l.Join("p1", "Alice", time.Now())
	l.SetReady("p1", true)
	l.RequestStart()
	l.TickCountdown()
	l.Join("p2", "Bob", time.Now()) // late join during countdown
	if _, started := l.TickCountdown(); !started {
		t.Fatal("late join reset the countdown")
	}
}

func TestResetKeepsRoles(t *testing.T) {
	l := New(1, 2, 1)
	l.Join("p1", "Alice", time.Now())
	l.SelectRole("p1", RoleGhost)
	l.SetReady("p1", true)
	l.RequestStart()
	l.TickCountdown()

	l.Reset()
	if l.State() != StateOpen {
		t.Fatalf("state = %v, want open", l.State())
	}
	e := l.Get("p1")
	if e.Ready {
		t.Fatal("ready survived reset")
	}
	if e.Role != RoleGhost {
		t.Fatal("role lost on reset")
	}

	l.ForceReset()
	if l.Get("p1").Role != RoleDefender {
		t.Fatal("role survived force reset")
	}
}
