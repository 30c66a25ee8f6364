package services

import (
	"errors"
	"log"
	"time"

	"card-tournament-system/engine"
	"card-tournament-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// EngineDefaults carries the policy knobs the engine itself refuses to
// hardcode: prize split, minimum field size, match length.
type EngineDefaults struct {
	MinParticipants int
	BestOf          int
	PrizeSplit      []float64
	NewAuthority    engine.AuthorityFactory
}

type TournamentService struct {
	DB       *gorm.DB
	Registry *engine.Registry
	Defaults EngineDefaults
}

func NewTournamentService(db *gorm.DB, registry *engine.Registry, defaults EngineDefaults) *TournamentService {
	if defaults.NewAuthority == nil {
		defaults.NewAuthority = engine.NewCardAuthority
	}
	return &TournamentService{DB: db, Registry: registry, Defaults: defaults}
}

var supportedBracketSizes = map[int]bool{8: true, 16: true, 32: true}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	type Req struct {
		Name            string `json:"name"`
		RulesProfile    string `json:"rules_profile"`
		MaxParticipants int    `json:"max_participants"`
		EntryFee        int64  `json:"entry_fee"`
		ScheduledStart  string `json:"scheduled_start,omitempty"` // RFC3339
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	if !supportedBracketSizes[req.MaxParticipants] {
		return c.Status(400).JSON(fiber.Map{"error": "max_participants must be 8, 16 or 32"})
	}
	if req.EntryFee < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "entry_fee must be non-negative"})
	}
	profile := engine.RulesProfile(req.RulesProfile)
	if profile == "" {
		profile = engine.RulesStandard
	}
	if !profile.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "rules_profile must be STANDARD or LEGACY"})
	}

	var scheduledStart *time.Time
	if req.ScheduledStart != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledStart)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid scheduled_start (use RFC3339)"})
		}
		scheduledStart = &t
	}

	id := uuid.NewString()
	record := &models.Tournament{
		ID:              id,
		Name:            req.Name,
		Slug:            slug.Make(req.Name),
		RulesProfile:    string(profile),
		MaxParticipants: req.MaxParticipants,
		MinParticipants: s.Defaults.MinParticipants,
		EntryFee:        req.EntryFee,
		State:           string(engine.StateRegistration),
		ScheduledStart:  scheduledStart,
	}
	if err := s.DB.Create(record).Error; err != nil {
		log.Printf("ERROR creating tournament record: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	cfg := engine.TournamentConfig{
		ID:              id,
		Name:            req.Name,
		Profile:         profile,
		MaxParticipants: req.MaxParticipants,
		MinParticipants: s.Defaults.MinParticipants,
		EntryFee:        req.EntryFee,
		BestOf:          s.Defaults.BestOf,
		PrizeSplit:      s.Defaults.PrizeSplit,
		NewAuthority:    s.Defaults.NewAuthority,
		Registry:        s.Registry,
		Hooks: engine.Hooks{
			OnBracketReady:  s.persistBracket,
			OnRoundStarted:  s.persistRoundStart,
			OnMatchComplete: s.persistMatchResult,
			OnFinished:      s.persistFinish,
			OnCancelled:     s.persistCancellation,
		},
	}
	if scheduledStart != nil {
		cfg.ScheduledStart = *scheduledStart
	}
	s.Registry.AddTournament(engine.NewTournament(cfg))

	return c.Status(201).JSON(record)
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	err := s.DB.
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("seed ASC")
		}).
		Order("created_at DESC").
		Find(&tournaments).Error
	if err != nil {
		log.Printf("ERROR fetching tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

// GetAllTournamentsMini returns the lobby list snapshot: one row per
// tournament with its participant count, no bracket payload.
func (s *TournamentService) GetAllTournamentsMini(c *fiber.Ctx) error {
	var tournaments []models.TournamentMini
	query := `
        SELECT
            t.id,
            t.name,
            t.state,
            t.rules_profile,
            t.max_participants,
            t.entry_fee,
            t.prize_pool,
            t.current_round,
            t.scheduled_start,
            t.started_at,
            t.finished_at,
            t.created_at,
            COUNT(e.id) as participant_count
        FROM tournaments t
        LEFT JOIN tournament_entries e ON t.id = e.tournament_id
        GROUP BY t.id
        ORDER BY t.created_at DESC
    `
	if err := s.DB.Raw(query).Scan(&tournaments).Error; err != nil {
		log.Printf("ERROR fetching mini tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var tournament models.Tournament
	err := s.DB.
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("seed ASC")
		}).
		Preload("Pairings", func(db *gorm.DB) *gorm.DB {
			return db.Order("round ASC, slot_index ASC")
		}).
		First(&tournament, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		log.Printf("ERROR fetching tournament %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var count int64
	s.DB.Model(&models.TournamentEntry{}).
		Where("tournament_id = ?", id).
		Count(&count)
	tournament.ParticipantCount = count

	return c.JSON(tournament)
}

// RegisterPlayer admits a player into an open registration window. The
// engine runtime is the authority on admission; the entry row mirrors it.
func (s *TournamentService) RegisterPlayer(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	type Req struct {
		PlayerID   string `json:"player_id"`
		PlayerName string `json:"player_name"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.PlayerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player_id is required"})
	}

	rt := s.Registry.Tournament(tournamentID)
	if rt == nil {
		return s.registrationGone(c, tournamentID)
	}

	if err := rt.Register(req.PlayerID); err != nil {
		switch {
		case errors.Is(err, engine.ErrAlreadyRegistered):
			return c.Status(409).JSON(fiber.Map{"error": "player already registered"})
		case errors.Is(err, engine.ErrTournamentFull):
			return c.Status(403).JSON(fiber.Map{"error": "tournament is full"})
		case errors.Is(err, engine.ErrRegistrationClosed):
			return c.Status(409).JSON(fiber.Map{"error": "registration is closed"})
		default:
			log.Printf("ERROR registering player %s: %v", req.PlayerID, err)
			return c.Status(500).JSON(fiber.Map{"error": "registration failed"})
		}
	}

	snap := rt.Snapshot()
	seed := 0
	for i, p := range snap.Participants {
		if p == req.PlayerID {
			seed = i + 1
			break
		}
	}
	entry := models.TournamentEntry{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		PlayerID:     req.PlayerID,
		PlayerName:   req.PlayerName,
		Seed:         seed,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.Tournament{}).
			Where("id = ?", tournamentID).
			Update("prize_pool", snap.PrizePool).Error
	})
	if err != nil {
		log.Printf("ERROR persisting entry for %s: %v", req.PlayerID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to persist registration"})
	}

	return c.Status(201).JSON(fiber.Map{
		"message":    "registered",
		"entry":      entry,
		"prize_pool": snap.PrizePool,
		"state":      snap.State,
	})
}

// registrationGone distinguishes "never existed" from "already past
// registration" for requests that miss the live runtime.
func (s *TournamentService) registrationGone(c *fiber.Ctx, tournamentID string) error {
	var record models.Tournament
	if err := s.DB.First(&record, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}
	return c.Status(409).JSON(fiber.Map{"error": "registration is closed", "state": record.State})
}

func (s *TournamentService) CloseRegistration(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	rt := s.Registry.Tournament(tournamentID)
	if rt == nil {
		return s.registrationGone(c, tournamentID)
	}
	if err := rt.CloseRegistration(); err != nil {
		switch {
		case errors.Is(err, engine.ErrTooFewParticipants):
			return c.Status(400).JSON(fiber.Map{"error": "not enough participants to build a bracket"})
		case errors.Is(err, engine.ErrRegistrationClosed):
			return c.Status(409).JSON(fiber.Map{"error": "registration already closed"})
		default:
			log.Printf("ERROR closing registration for %s: %v", tournamentID, err)
			return c.Status(500).JSON(fiber.Map{"error": "close failed"})
		}
	}
	return c.JSON(rt.Snapshot())
}

// CancelTournament aborts a tournament still in registration and queues
// entry-fee refunds. Once round 1 has begun the only way out is
// per-match forfeit.
func (s *TournamentService) CancelTournament(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	rt := s.Registry.Tournament(tournamentID)
	if rt == nil {
		return s.registrationGone(c, tournamentID)
	}
	if err := rt.Cancel(); err != nil {
		if errors.Is(err, engine.ErrTournamentNotCancellable) {
			return c.Status(409).JSON(fiber.Map{"error": "tournament can no longer be cancelled"})
		}
		log.Printf("ERROR cancelling tournament %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "cancel failed"})
	}
	s.Registry.RemoveTournament(tournamentID)
	rt.Stop()
	return c.JSON(fiber.Map{"message": "tournament cancelled", "id": tournamentID})
}

func (s *TournamentService) GetBracket(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	var pairings []models.PairingRecord
	if err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("round ASC, slot_index ASC").
		Find(&pairings).Error; err != nil {
		log.Printf("ERROR fetching bracket for %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch bracket"})
	}
	if len(pairings) == 0 {
		var record models.Tournament
		if err := s.DB.First(&record, "id = ?", tournamentID).Error; err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(409).JSON(fiber.Map{"error": "bracket not built yet", "state": record.State})
	}

	rounds := map[int][]models.PairingRecord{}
	maxRound := 0
	for _, p := range pairings {
		rounds[p.Round] = append(rounds[p.Round], p)
		if p.Round > maxRound {
			maxRound = p.Round
		}
	}
	out := make([][]models.PairingRecord, maxRound+1)
	for r := 0; r <= maxRound; r++ {
		out[r] = rounds[r]
	}
	return c.JSON(fiber.Map{"tournament_id": tournamentID, "rounds": out})
}

// --- engine hooks: each runs on the owning runtime's loop and only
// writes rows, never calls back into the runtime. ---

func (s *TournamentService) persistBracket(snap engine.TournamentSnapshot) {
	now := time.Now().UTC()
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"state":        string(engine.StateBracketReady),
			"prize_pool":   snap.PrizePool,
			"bracket_size": snap.Bracket.Size,
			"started_at":   &now,
		}
		if err := tx.Model(&models.Tournament{}).
			Where("id = ?", snap.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		for r := range snap.Bracket.Rounds {
			for i := range snap.Bracket.Rounds[r] {
				p := snap.Bracket.Rounds[r][i]
				row := models.PairingRecord{
					ID:           p.MatchID,
					TournamentID: snap.ID,
					Round:        p.Round,
					SlotIndex:    p.Index,
					Player1ID:    p.Player1,
					Player2ID:    p.Player2,
					State:        string(p.State),
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR persisting bracket for %s: %v", snap.ID, err)
	}
}

func (s *TournamentService) persistRoundStart(tournamentID string, round int, pairings []engine.Pairing) {
	now := time.Now().UTC()
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Tournament{}).
			Where("id = ?", tournamentID).
			Updates(map[string]interface{}{
				"state":         string(engine.StateRoundInProgress),
				"current_round": round,
			}).Error; err != nil {
			return err
		}
		for _, p := range pairings {
			updates := map[string]interface{}{
				"player1_id": p.Player1,
				"player2_id": p.Player2,
				"state":      string(p.State),
			}
			if p.State == engine.PairingRunning {
				updates["started_at"] = &now
			}
			if err := tx.Model(&models.PairingRecord{}).
				Where("id = ?", p.MatchID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR persisting round %d start for %s: %v", round, tournamentID, err)
	}
}

func (s *TournamentService) persistMatchResult(res engine.MatchResult) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PairingRecord{}).
			Where("id = ?", res.MatchID).
			Updates(map[string]interface{}{
				"state":         string(engine.PairingComplete),
				"winner_id":     res.Winner,
				"by_forfeit":    res.ByForfeit,
				"player1_score": res.Score[res.Player1],
				"player2_score": res.Score[res.Player2],
				"replay_id":     res.MatchID,
				"completed_at":  res.CompletedAt,
			}).Error; err != nil {
			return err
		}

		replay := models.Replay{
			ID:           res.MatchID,
			TournamentID: res.TournamentID,
			Round:        res.Round,
			Player1ID:    res.Player1,
			Player2ID:    res.Player2,
			WinnerID:     res.Winner,
			Player1Score: res.Score[res.Player1],
			Player2Score: res.Score[res.Player2],
			ByForfeit:    res.ByForfeit,
			MoveCount:    len(res.Moves),
			StartedAt:    res.StartedAt,
			CompletedAt:  res.CompletedAt,
			DurationSec:  int(res.Duration.Seconds()),
		}
		if err := tx.Create(&replay).Error; err != nil {
			return err
		}
		for _, m := range res.Moves {
			row := models.ReplayMove{
				ID:            uuid.NewString(),
				ReplayID:      res.MatchID,
				SequenceIndex: m.SequenceIndex,
				ActorID:       m.ActorID,
				ActionKind:    string(m.Kind),
				CardRef:       m.CardRef,
				GameRound:     m.GameRound,
				Timestamp:     m.Timestamp,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR persisting match result %s: %v", res.MatchID, err)
	}
}

func (s *TournamentService) persistFinish(result engine.TournamentResult) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Tournament{}).
			Where("id = ?", result.TournamentID).
			Updates(map[string]interface{}{
				"state":        string(engine.StateFinished),
				"champion_id":  result.Champion,
				"runner_up_id": result.RunnerUp,
				"finished_at":  result.FinishedAt,
			}).Error; err != nil {
			return err
		}
		for _, award := range result.Awards {
			if award.Amount <= 0 {
				continue
			}
			payout := models.Payout{
				ID:           uuid.NewString(),
				TournamentID: result.TournamentID,
				PlayerID:     award.PlayerID,
				Kind:         models.PayoutKindPrize,
				Place:        award.Place,
				Amount:       award.Amount,
				Status:       models.PayoutStatusPending,
			}
			if err := tx.Create(&payout).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR persisting finish for %s: %v", result.TournamentID, err)
	} else {
		log.Printf("Tournament %s finished, champion %s, pool %d", result.TournamentID, result.Champion, result.PrizePool)
	}
}

func (s *TournamentService) persistCancellation(snap engine.TournamentSnapshot) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Tournament{}).
			Where("id = ?", snap.ID).
			Update("state", string(engine.StateCancelled)).Error; err != nil {
			return err
		}
		if snap.EntryFee <= 0 {
			return nil
		}
		for _, playerID := range snap.Participants {
			refund := models.Payout{
				ID:           uuid.NewString(),
				TournamentID: snap.ID,
				PlayerID:     playerID,
				Kind:         models.PayoutKindRefund,
				Amount:       snap.EntryFee,
				Status:       models.PayoutStatusPending,
			}
			if err := tx.Create(&refund).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR persisting cancellation for %s: %v", snap.ID, err)
	}
}
