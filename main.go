package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polls-backend/cache"
	"polls-backend/database"
	"polls-backend/handlers"
	"polls-backend/repository"
	"polls-backend/routes"
	"polls-backend/service"
	"polls-backend/websocket"
)

func main() {
	if err := database.InitDB(); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	// Redis is optional. Without it the service skips result caching
	// and the distributed vote lock, relying on the database transaction.
	var locks *cache.VoteLockService
	if err := cache.InitRedis(); err != nil {
		log.Printf("redis unavailable, continuing without cache and vote locks: %v", err)
	} else {
		defer cache.CloseRedis()
		var lockErr error
		locks, lockErr = cache.NewVoteLockService()
		if lockErr != nil {
			log.Printf("vote lock service unavailable: %v", lockErr)
		}
	}

	hub := websocket.NewHub()
	go hub.Run()

	repo := repository.NewQuestionRepository(database.DB)
	votingService := service.NewVotingService(repo, locks, hub)

	questionHandler := handlers.NewQuestionHandler(votingService)
	voteHandler := handlers.NewVoteHandler(votingService)
	wsHandler := websocket.NewHandler(hub)

	router := routes.SetupRouter(questionHandler, voteHandler, wsHandler)
	srv := routes.StartServer(router)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
