package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	l := NewCommandLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("conn1") {
			t.Fatalf("command %d should be allowed", i)
		}
	}
	if l.Allow("conn1") {
		t.Error("fourth command should be rejected")
	}
}

func TestConnectionsAreIndependent(t *testing.T) {
	l := NewCommandLimiter(1, time.Minute)

	if !l.Allow("conn1") {
		t.Fatal("conn1 first command should be allowed")
	}
	if !l.Allow("conn2") {
		t.Error("conn2 must have its own budget")
	}
	if l.Allow("conn1") {
		t.Error("conn1 second command should be rejected")
	}
}

func TestWindowSlides(t *testing.T) {
	l := NewCommandLimiter(1, 20*time.Millisecond)

	if !l.Allow("conn1") {
		t.Fatal("first command should be allowed")
	}
	if l.Allow("conn1") {
		t.Fatal("second command should be rejected inside the window")
	}

	time.Sleep(30 * time.Millisecond)
	if !l.Allow("conn1") {
		t.Error("command should be allowed after the window expires")
	}
}

func TestZeroMaxDisablesLimiting(t *testing.T) {
	l := NewCommandLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !l.Allow("conn1") {
			t.Fatal("limiting should be disabled with max 0")
		}
	}
}

func TestForget(t *testing.T) {
	l := NewCommandLimiter(1, time.Minute)

	l.Allow("conn1")
	l.Forget("conn1")
	if !l.Allow("conn1") {
		t.Error("budget should reset after Forget")
	}
}
