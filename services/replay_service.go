package services

import (
	"errors"
	"log"

	"card-tournament-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ReplayService struct {
	DB *gorm.DB
}

func NewReplayService(db *gorm.DB) *ReplayService {
	return &ReplayService{DB: db}
}

// GetReplay returns a completed match's summary plus its full move log,
// moves ordered by sequence index.
func (s *ReplayService) GetReplay(c *fiber.Ctx) error {
	id := c.Params("id")
	var replay models.Replay
	err := s.DB.
		Preload("Moves", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_index ASC")
		}).
		First(&replay, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "replay not found"})
		}
		log.Printf("ERROR fetching replay %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(replay)
}

// GetTournamentReplays lists replay summaries for one tournament without
// move payloads.
func (s *ReplayService) GetTournamentReplays(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	var replays []models.Replay
	err := s.DB.
		Where("tournament_id = ?", tournamentID).
		Order("round ASC, completed_at ASC").
		Find(&replays).Error
	if err != nil {
		log.Printf("ERROR fetching replays for %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch replays"})
	}
	return c.JSON(replays)
}
