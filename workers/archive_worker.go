package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"card-tournament-system/engine"
	"card-tournament-system/models"
	"card-tournament-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArchiveWorker moves finished tournaments into cold storage: replay
// move logs go to R2, headline results go to the hall of fame, player
// records get rolled up, then the runtime is released.
type ArchiveWorker struct {
	DB       *gorm.DB
	Registry *engine.Registry
	Interval time.Duration
}

func NewArchiveWorker(db *gorm.DB, registry *engine.Registry, interval time.Duration) *ArchiveWorker {
	return &ArchiveWorker{DB: db, Registry: registry, Interval: interval}
}

func (w *ArchiveWorker) Run(ctx context.Context) {
	log.Println("Starting tournament archive worker...")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Archive worker stopped.")
			return
		case <-ticker.C:
			var finished []models.Tournament
			err := w.DB.Where("state = ?", string(engine.StateFinished)).
				Find(&finished).Error
			if err != nil {
				log.Printf("❌ Archive worker DB error: %v", err)
				continue
			}
			for _, t := range finished {
				if err := w.archiveTournament(ctx, t); err != nil {
					log.Printf("❌ Failed to archive tournament %s: %v", t.ID, err)
					continue
				}
				log.Printf("✅ Archived tournament: %s", t.Name)
			}
		}
	}
}

func (w *ArchiveWorker) archiveTournament(ctx context.Context, t models.Tournament) error {
	var replays []models.Replay
	err := w.DB.
		Preload("Moves", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_index ASC")
		}).
		Where("tournament_id = ?", t.ID).
		Find(&replays).Error
	if err != nil {
		return fmt.Errorf("failed to load replays: %w", err)
	}

	for i := range replays {
		if replays[i].ArchiveURL != "" {
			continue // already uploaded on an earlier, partially failed pass
		}
		payload, err := json.Marshal(replays[i])
		if err != nil {
			return fmt.Errorf("failed to marshal replay %s: %w", replays[i].ID, err)
		}
		key := fmt.Sprintf("replays/%s/%s.json", t.Slug, replays[i].ID)
		url, err := utils.UploadBytesToR2(ctx, payload, key, "application/json")
		if err != nil {
			return fmt.Errorf("failed to upload replay %s: %w", replays[i].ID, err)
		}
		if err := w.DB.Model(&models.Replay{}).
			Where("id = ?", replays[i].ID).
			Update("archive_url", url).Error; err != nil {
			return fmt.Errorf("failed to record archive url: %w", err)
		}
		replays[i].ArchiveURL = url
	}

	finishedAt := time.Now().UTC()
	if t.FinishedAt != nil {
		finishedAt = *t.FinishedAt
	}

	var prizeByPlayer []models.Payout
	w.DB.Where("tournament_id = ? AND kind = ?", t.ID, models.PayoutKindPrize).
		Find(&prizeByPlayer)
	prizeWon := map[string]int64{}
	for _, p := range prizeByPlayer {
		prizeWon[p.PlayerID] += p.Amount
	}

	return w.DB.Transaction(func(tx *gorm.DB) error {
		entry := models.HallOfFameEntry{
			ID:             t.ID,
			TournamentID:   t.ID,
			TournamentName: t.Name,
			RulesProfile:   t.RulesProfile,
			BracketSize:    t.BracketSize,
			ChampionID:     t.ChampionID,
			RunnerUpID:     t.RunnerUpID,
			PrizePool:      t.PrizePool,
			FinishedAt:     finishedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tournament_id"}},
			DoNothing: true,
		}).Create(&entry).Error; err != nil {
			return err
		}

		// Roll match wins/losses up per player, byes excluded.
		wins := map[string]int{}
		losses := map[string]int{}
		for _, r := range replays {
			if r.WinnerID == "" {
				continue
			}
			wins[r.WinnerID]++
			if r.Player1ID == r.WinnerID {
				losses[r.Player2ID]++
			} else {
				losses[r.Player1ID]++
			}
		}

		players := map[string]bool{}
		for p := range wins {
			players[p] = true
		}
		for p := range losses {
			players[p] = true
		}
		for playerID := range players {
			row := models.LeaderboardRow{
				PlayerID:    playerID,
				MatchWins:   wins[playerID],
				MatchLosses: losses[playerID],
				PrizeWon:    prizeWon[playerID],
			}
			if playerID == t.ChampionID {
				row.Titles = 1
				row.FinalsReached = 1
			}
			if playerID == t.RunnerUpID {
				row.FinalsReached = 1
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "player_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"titles":         gorm.Expr("leaderboard_rows.titles + excluded.titles"),
					"finals_reached": gorm.Expr("leaderboard_rows.finals_reached + excluded.finals_reached"),
					"match_wins":     gorm.Expr("leaderboard_rows.match_wins + excluded.match_wins"),
					"match_losses":   gorm.Expr("leaderboard_rows.match_losses + excluded.match_losses"),
					"prize_won":      gorm.Expr("leaderboard_rows.prize_won + excluded.prize_won"),
				}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.Tournament{}).
			Where("id = ?", t.ID).
			Updates(map[string]interface{}{
				"state":       string(engine.StateArchived),
				"archived_at": &now,
			}).Error; err != nil {
			return err
		}

		// Release the runtime; everything it knew is durable now.
		if rt := w.Registry.Tournament(t.ID); rt != nil {
			w.Registry.RemoveTournament(t.ID)
			rt.Stop()
		}
		return nil
	})
}
