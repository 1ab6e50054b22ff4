package timers

import (
	"log"
	"sync"
	"time"

	"guessr/models"
)

// ExpireFunc is invoked once when a round's deadline passes. It runs on the
// timer goroutine and must tolerate the round already being finished.
type ExpireFunc func(roundID string)

// RoundTimerService arms one in-process timer per active round. Timers are an
// optimization over the persisted deadline, not the source of truth: a missed
// timer is recovered on restart by re-arming from timer_expires_at.
type RoundTimerService struct {
	mu         sync.Mutex
	timers     map[string]*time.Timer
	expireFunc ExpireFunc
}

func NewRoundTimerService() *RoundTimerService {
	return &RoundTimerService{
		timers: make(map[string]*time.Timer),
	}
}

// SetExpireFunc wires the deadline callback. Must be called before Schedule;
// breaks the construction cycle between the timer and rounds services.
func (s *RoundTimerService) SetExpireFunc(fn ExpireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireFunc = fn
}

// Schedule arms a timer for the round's deadline, replacing any existing
// timer for the same round. Deadlines already in the past fire immediately.
func (s *RoundTimerService) Schedule(roundID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[roundID]; ok {
		existing.Stop()
	}

	delay := time.Until(expiresAt)
	if delay < 0 {
		delay = 0
	}
	log.Printf("⏰ Scheduling expiry for round %s in %s", roundID, delay.Round(time.Millisecond))

	s.timers[roundID] = time.AfterFunc(delay, func() {
		s.fire(roundID)
	})
}

// Cancel disarms the round's timer if one is armed. Safe to call for rounds
// that were never scheduled or already fired.
func (s *RoundTimerService) Cancel(roundID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[roundID]; ok {
		timer.Stop()
		delete(s.timers, roundID)
		log.Printf("⏰ Cancelled timer for round %s", roundID)
	}
}

// RecoverRounds re-arms timers for rounds that were active when the process
// last stopped. Overdue rounds get an immediate expiry.
func (s *RoundTimerService) RecoverRounds(rounds []*models.Round) {
	log.Printf("⏰ Recovering timers for %d active rounds", len(rounds))
	now := time.Now()
	for _, round := range rounds {
		if round.TimerExpiresAt.Before(now) {
			log.Printf("⏰ Round %s deadline passed while offline, expiring now", round.ID)
		}
		s.Schedule(round.ID, round.TimerExpiresAt)
	}
}

// Stop disarms every timer. Used during shutdown so in-flight rounds expire
// via recovery on the next start instead of racing teardown.
func (s *RoundTimerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for roundID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, roundID)
	}
	log.Printf("⏰ All round timers stopped")
}

func (s *RoundTimerService) fire(roundID string) {
	s.mu.Lock()
	delete(s.timers, roundID)
	fn := s.expireFunc
	s.mu.Unlock()

	if fn == nil {
		log.Printf("⚠️ Timer fired for round %s but no expire func is wired", roundID)
		return
	}
	fn(roundID)
}
