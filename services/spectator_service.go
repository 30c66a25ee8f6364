package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"card-tournament-system/engine"

	"github.com/gofiber/fiber/v2"
)

type SpectatorService struct {
	Hub *engine.SpectatorHub
}

func NewSpectatorService(hub *engine.SpectatorHub) *SpectatorService {
	return &SpectatorService{Hub: hub}
}

// StreamMatchSSE streams live match snapshots to a spectator. Spectators
// never slow the match down: the runtime drops snapshots for lagging
// subscribers and this writer just forwards whatever arrives.
func (s *SpectatorService) StreamMatchSSE(c *fiber.Ctx) error {
	matchID := c.Params("id")

	subID, snapshots, err := s.Hub.Attach(matchID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrMatchNotRunning):
			return c.Status(409).JSON(fiber.Map{"error": "match not running yet"})
		case errors.Is(err, engine.ErrMatchNotFound):
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		default:
			log.Printf("SSE attach error for match %s: %v", matchID, err)
			return c.Status(500).JSON(fiber.Map{"error": "subscribe failed"})
		}
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer s.Hub.Detach(subID)

		keepalive := time.NewTicker(15 * time.Second)
		defer keepalive.Stop()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					// Match completed, runtime closed the stream.
					fmt.Fprintf(w, "event: end\ndata: {}\n\n")
					w.Flush()
					return
				}
				payload, _ := json.Marshal(snap)
				fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-keepalive.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
