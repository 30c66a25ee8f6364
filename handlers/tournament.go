package handlers

import (
	"card-tournament-system/middleware"
	"card-tournament-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(
	app *fiber.App,
	tournamentService *services.TournamentService,
	matchService *services.MatchService,
	replayService *services.ReplayService,
	hallOfFameService *services.HallOfFameService,
	spectatorService *services.SpectatorService,
	authClient *services.AuthServiceClient,
) {
	// 🔓 Public routes
	app.Get("/tournaments/mini", tournamentService.GetAllTournamentsMini)
	app.Get("/tournaments/:id/bracket", tournamentService.GetBracket)
	app.Get("/tournaments/:id/replays", replayService.GetTournamentReplays)
	app.Get("/replays/:id", replayService.GetReplay)
	app.Get("/hall-of-fame", hallOfFameService.GetHallOfFame)
	app.Get("/leaderboard", hallOfFameService.GetLeaderboard)
	app.Get("/players/:id/record", hallOfFameService.GetPlayerRecord)

	// Spectator stream authenticates via query token (EventSource
	// cannot set headers), not via the Gateway group below.
	app.Get("/matches/:id/stream", middleware.SSEAuthMiddleware(authClient), spectatorService.StreamMatchSSE)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Tournament lifecycle
	secured.Post("/tournaments", tournamentService.CreateTournament)
	secured.Get("/tournaments", tournamentService.GetAllTournaments)
	secured.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	secured.Post("/tournaments/:id/register", tournamentService.RegisterPlayer)
	secured.Post("/tournaments/:id/close", tournamentService.CloseRegistration)
	secured.Post("/tournaments/:id/cancel", tournamentService.CancelTournament)

	// Match play
	secured.Get("/matches/live", matchService.GetLiveMatches)
	secured.Get("/matches/:id", matchService.GetMatch)
	secured.Post("/matches/:id/moves", matchService.SubmitMove)
	secured.Post("/matches/:id/forfeit", matchService.ForfeitMatch)
}
