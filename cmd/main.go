package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	discordclient "guessr/clients/discord"
	"guessr/config"
	"guessr/db"
	"guessr/handlers"
	"guessr/services/rounds"
	"guessr/services/scores"
	"guessr/services/selector"
	"guessr/services/timers"
	"guessr/services/txmanager"
)

func main() {
	if err := run(); err != nil {
		log.Printf("❌ Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Initialize repositories with shared connection
	roundsRepo := db.NewPostgresRoundsRepository(dbConn, cfg.DatabaseSchema)
	guessesRepo := db.NewPostgresGuessesRepository(dbConn, cfg.DatabaseSchema)
	scoresRepo := db.NewPostgresPlayerScoresRepository(dbConn, cfg.DatabaseSchema)

	txManager := txmanager.NewTransactionManager(dbConn)
	timerService := timers.NewRoundTimerService()
	defer timerService.Stop()

	scoresService := scores.NewScoresService(scoresRepo)

	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return err
	}

	messageSource := discordclient.NewDiscordMessageSource(session)
	targetSelector := selector.NewTargetSelectorService(messageSource, cfg.Game)
	roundsService := rounds.NewRoundsService(
		roundsRepo,
		guessesRepo,
		scoresRepo,
		txManager,
		targetSelector,
		timerService,
		messageSource,
		cfg.Game,
	)
	discordHandler := handlers.NewDiscordEventsHandler(session, roundsService, scoresService)

	// Deadline expiry: complete the round and announce the reveal
	timerService.SetExpireFunc(func(roundID string) {
		maybeReveal, err := roundsService.ExpireRound(context.Background(), roundID)
		if err != nil {
			log.Printf("❌ Failed to expire round %s: %v", roundID, err)
			return
		}
		if reveal, ok := maybeReveal.Get(); ok {
			discordHandler.PostRoundReveal(reveal)
		}
	})

	// Re-arm timers from persisted deadlines before anything can start new
	// rounds or submit guesses
	activeRounds, err := roundsRepo.GetActiveRounds(context.Background())
	if err != nil {
		return err
	}
	timerService.RecoverRounds(activeRounds)

	if err := discordHandler.StartBot(); err != nil {
		return err
	}
	defer discordHandler.StopBot()

	// Read-only HTTP API
	router := mux.NewRouter()
	handlers.NewAPIHandler(scoresService).RegisterRoutes(router)

	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 30 * time.Second,
	}

	return handleGracefulShutdown(server)
}

func handleGracefulShutdown(server *http.Server) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("✅ Listening on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Server error: %v", err)
		}
	}()

	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	log.Printf("✅ Shutdown complete")
	return nil
}
