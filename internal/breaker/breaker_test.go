package breaker

import (
	"errors"
	"testing"
	"time"
)

func TestClosedAllowsAttempt(t *testing.T) {
	b := New(3, time.Minute)
	if !b.ShouldAttempt("embeddings") {
		t.Fatal("expected closed breaker to allow attempt")
	}
	b.RecordSuccess("embeddings")
	if b.State("embeddings") != StateClosed {
		t.Fatalf("expected closed, got %s", b.State("embeddings"))
	}
}

func TestOpensAfterMaxConsecutiveFailures(t *testing.T) {
	b := New(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !b.ShouldAttempt("embeddings") {
			t.Fatalf("attempt %d should have been allowed", i)
		}
		b.RecordFailure("embeddings", errors.New("boom"))
	}
	if b.State("embeddings") != StateOpen {
		t.Fatalf("expected open after %d consecutive failures, got %s", 3, b.State("embeddings"))
	}
	if b.ShouldAttempt("embeddings") {
		t.Fatal("expected open breaker to refuse attempt within cooldown")
	}
}

func TestHalfOpenProbeRecoversToClose(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.ShouldAttempt("store")
	b.RecordFailure("store", errors.New("boom"))
	if b.State("store") != StateOpen {
		t.Fatalf("expected open, got %s", b.State("store"))
	}
	time.Sleep(20 * time.Millisecond)
	if !b.ShouldAttempt("store") {
		t.Fatal("expected half-open probe to be allowed after cooldown")
	}
	b.RecordSuccess("store")
	if b.State("store") != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", b.State("store"))
	}
}

func TestGuardReadDegradesToZeroWhenOpen(t *testing.T) {
	b := New(1, time.Minute)
	b.ShouldAttempt("embeddings")
	b.RecordFailure("embeddings", errors.New("boom"))

	got := GuardRead(b, "embeddings", func() ([]string, error) {
		t.Fatal("fn should not run while breaker is open")
		return nil, nil
	})
	if got != nil {
		t.Fatalf("expected nil/zero degraded result, got %v", got)
	}
}

func TestGuardWriteShortCircuitsWhenOpen(t *testing.T) {
	b := New(1, time.Minute)
	b.ShouldAttempt("store")
	b.RecordFailure("store", errors.New("boom"))

	called := false
	err := GuardWrite(b, "store", func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error on short-circuit, got %v", err)
	}
	if called {
		t.Fatal("fn should not run while breaker is open")
	}
}

func TestIndependentSubsystems(t *testing.T) {
	b := New(1, time.Minute)
	b.ShouldAttempt("a")
	b.RecordFailure("a", errors.New("boom"))
	if b.State("a") != StateOpen {
		t.Fatalf("expected a open, got %s", b.State("a"))
	}
	if b.State("b") != StateClosed {
		t.Fatalf("expected b unaffected and closed, got %s", b.State("b"))
	}
}
