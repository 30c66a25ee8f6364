// services/scheduler.go
package services

import (
	"errors"
	"log"
	"time"

	"card-tournament-system/engine"
	"card-tournament-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartScheduler kicks tournaments whose scheduled start has arrived:
// registration closes, the bracket locks, round 1 begins. A tournament
// that still lacks enough players stays open for the next tick.
func (s *TournamentService) StartScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: close registration on due tournaments
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var due []models.Tournament
			now := time.Now()
			err := s.DB.Where("state = ? AND scheduled_start IS NOT NULL AND scheduled_start <= ?",
				string(engine.StateRegistration), now).
				Find(&due).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, t := range due {
				rt := s.Registry.Tournament(t.ID)
				if rt == nil {
					continue
				}
				if err := rt.CloseRegistration(); err != nil {
					if errors.Is(err, engine.ErrTooFewParticipants) {
						log.Printf("[Scheduler] Tournament %s not full enough yet, staying open", t.Name)
						continue
					}
					log.Printf("[Scheduler] Failed to start tournament %s: %v", t.ID, err)
				} else {
					log.Printf("✅ Auto-started tournament: %s", t.Name)
				}
			}
		}),
	)
}
