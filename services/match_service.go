package services

import (
	"errors"
	"log"

	"card-tournament-system/engine"
	"card-tournament-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type MatchService struct {
	DB       *gorm.DB
	Registry *engine.Registry
}

func NewMatchService(db *gorm.DB, registry *engine.Registry) *MatchService {
	return &MatchService{DB: db, Registry: registry}
}

// SubmitMove applies one player action to a running match. A rejected
// move leaves no trace in the replay log, so a 4xx here costs nothing.
func (s *MatchService) SubmitMove(c *fiber.Ctx) error {
	matchID := c.Params("id")
	type Req struct {
		PlayerID string `json:"player_id"`
		Kind     string `json:"kind"`
		CardRef  string `json:"card_ref,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.PlayerID == "" || req.Kind == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player_id and kind are required"})
	}

	rt := s.Registry.Match(matchID)
	if rt == nil {
		return s.matchGone(c, matchID)
	}

	action := engine.Action{Kind: engine.ActionKind(req.Kind), CardRef: req.CardRef}
	if err := rt.ApplyMove(req.PlayerID, action); err != nil {
		switch {
		case errors.Is(err, engine.ErrNotAParticipant):
			return c.Status(403).JSON(fiber.Map{"error": "not a participant of this match"})
		case errors.Is(err, engine.ErrOutOfTurn):
			return c.Status(409).JSON(fiber.Map{"error": "not your turn"})
		case errors.Is(err, engine.ErrIllegalMove):
			return c.Status(422).JSON(fiber.Map{"error": "illegal move", "details": err.Error()})
		case errors.Is(err, engine.ErrMatchAlreadyComplete):
			return c.Status(409).JSON(fiber.Map{"error": "match already complete"})
		default:
			log.Printf("ERROR applying move to %s: %v", matchID, err)
			return c.Status(500).JSON(fiber.Map{"error": "move failed"})
		}
	}
	return c.JSON(rt.Snapshot())
}

// ForfeitMatch concedes on behalf of a player. The session layer calls
// this on disconnect timeouts as well as explicit concessions.
func (s *MatchService) ForfeitMatch(c *fiber.Ctx) error {
	matchID := c.Params("id")
	type Req struct {
		PlayerID string `json:"player_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.PlayerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player_id is required"})
	}

	rt := s.Registry.Match(matchID)
	if rt == nil {
		return s.matchGone(c, matchID)
	}
	if err := rt.Forfeit(req.PlayerID); err != nil {
		switch {
		case errors.Is(err, engine.ErrNotAParticipant):
			return c.Status(403).JSON(fiber.Map{"error": "not a participant of this match"})
		case errors.Is(err, engine.ErrMatchAlreadyComplete):
			return c.Status(409).JSON(fiber.Map{"error": "match already complete"})
		default:
			log.Printf("ERROR forfeiting %s: %v", matchID, err)
			return c.Status(500).JSON(fiber.Map{"error": "forfeit failed"})
		}
	}
	return c.JSON(fiber.Map{"message": "match forfeited", "match_id": matchID})
}

func (s *MatchService) GetMatch(c *fiber.Ctx) error {
	matchID := c.Params("id")
	if rt := s.Registry.Match(matchID); rt != nil {
		return c.JSON(rt.Snapshot())
	}

	var pairing models.PairingRecord
	if err := s.DB.First(&pairing, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		}
		log.Printf("ERROR fetching pairing %s: %v", matchID, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(pairing)
}

func (s *MatchService) GetLiveMatches(c *fiber.Ctx) error {
	return c.JSON(s.Registry.RunningMatches())
}

// matchGone maps a missing runtime onto the pairing row: a completed or
// not-yet-started slot is a conflict, an unknown id is a 404.
func (s *MatchService) matchGone(c *fiber.Ctx, matchID string) error {
	var pairing models.PairingRecord
	if err := s.DB.First(&pairing, "id = ?", matchID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	}
	switch pairing.State {
	case string(engine.PairingComplete), string(engine.PairingBye):
		return c.Status(409).JSON(fiber.Map{"error": "match already complete", "state": pairing.State})
	default:
		return c.Status(409).JSON(fiber.Map{"error": "match not running", "state": pairing.State})
	}
}
