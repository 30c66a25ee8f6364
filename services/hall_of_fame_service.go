package services

import (
	"log"
	"strconv"

	"card-tournament-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HallOfFameService struct {
	DB *gorm.DB
}

func NewHallOfFameService(db *gorm.DB) *HallOfFameService {
	return &HallOfFameService{DB: db}
}

func (s *HallOfFameService) GetHallOfFame(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.HallOfFameEntry
	err := s.DB.
		Order("finished_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		log.Printf("ERROR fetching hall of fame: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch hall of fame"})
	}
	return c.JSON(entries)
}

// GetLeaderboard ranks players by titles, then prize money.
func (s *HallOfFameService) GetLeaderboard(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.LeaderboardRow
	err := s.DB.
		Order("titles DESC, prize_won DESC, match_wins DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		log.Printf("ERROR fetching leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}
	return c.JSON(rows)
}

func (s *HallOfFameService) GetPlayerRecord(c *fiber.Ctx) error {
	playerID := c.Params("id")
	var row models.LeaderboardRow
	if err := s.DB.First(&row, "player_id = ?", playerID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "no record for player"})
	}

	var titles []models.HallOfFameEntry
	s.DB.Where("champion_id = ?", playerID).
		Order("finished_at DESC").
		Find(&titles)

	return c.JSON(fiber.Map{"record": row, "titles": titles})
}
