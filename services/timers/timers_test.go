package timers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guessr/models"
)

func collectExpiry(svc *RoundTimerService) chan string {
	expired := make(chan string, 10)
	svc.SetExpireFunc(func(roundID string) {
		expired <- roundID
	})
	return expired
}

func TestSchedule_FiresAtDeadline(t *testing.T) {
	svc := NewRoundTimerService()
	defer svc.Stop()
	expired := collectExpiry(svc)

	svc.Schedule("rnd_1", time.Now().Add(20*time.Millisecond))

	select {
	case roundID := <-expired:
		assert.Equal(t, "rnd_1", roundID)
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestSchedule_PastDeadlineFiresImmediately(t *testing.T) {
	svc := NewRoundTimerService()
	defer svc.Stop()
	expired := collectExpiry(svc)

	svc.Schedule("rnd_1", time.Now().Add(-time.Hour))

	select {
	case roundID := <-expired:
		assert.Equal(t, "rnd_1", roundID)
	case <-time.After(2 * time.Second):
		t.Fatal("overdue timer never fired")
	}
}

func TestSchedule_ReplacesExistingTimer(t *testing.T) {
	svc := NewRoundTimerService()
	defer svc.Stop()
	expired := collectExpiry(svc)

	svc.Schedule("rnd_1", time.Now().Add(time.Hour))
	svc.Schedule("rnd_1", time.Now().Add(20*time.Millisecond))

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("rescheduled timer never fired")
	}

	// The original one-hour timer must not fire a second time
	select {
	case roundID := <-expired:
		t.Fatalf("unexpected second expiry for round %s", roundID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancel_PreventsFiring(t *testing.T) {
	svc := NewRoundTimerService()
	defer svc.Stop()
	expired := collectExpiry(svc)

	svc.Schedule("rnd_1", time.Now().Add(50*time.Millisecond))
	svc.Cancel("rnd_1")

	select {
	case roundID := <-expired:
		t.Fatalf("cancelled timer fired for round %s", roundID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCancel_UnknownRoundIsNoop(t *testing.T) {
	svc := NewRoundTimerService()
	defer svc.Stop()

	svc.Cancel("rnd_never_scheduled")
}

func TestRecoverRounds(t *testing.T) {
	svc := NewRoundTimerService()
	defer svc.Stop()
	expired := collectExpiry(svc)

	rounds := []*models.Round{
		{ID: "rnd_overdue", TimerExpiresAt: time.Now().Add(-time.Minute)},
		{ID: "rnd_pending", TimerExpiresAt: time.Now().Add(time.Hour)},
	}
	svc.RecoverRounds(rounds)

	select {
	case roundID := <-expired:
		require.Equal(t, "rnd_overdue", roundID)
	case <-time.After(2 * time.Second):
		t.Fatal("overdue round was not expired on recovery")
	}

	select {
	case roundID := <-expired:
		t.Fatalf("future round %s expired during recovery", roundID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFire_WithoutExpireFuncDoesNotPanic(t *testing.T) {
	svc := NewRoundTimerService()
	defer svc.Stop()

	svc.Schedule("rnd_1", time.Now().Add(-time.Second))
	time.Sleep(50 * time.Millisecond)
}
