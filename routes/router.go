package routes

import (
	"log"
	"net/http"
	"os"
	"time"

	"polls-backend/handlers"
	"polls-backend/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server wraps the HTTP server for graceful shutdown.
type Server struct {
	*http.Server
}

// SetupRouter configures gin with CORS, identity and rate-limit middleware
// and registers all endpoints.
func SetupRouter(questionHandler *handlers.QuestionHandler, voteHandler *handlers.VoteHandler, wsHandler *websocket.Handler) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-Admin-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/status", handlers.SystemStatus)

		questions := api.Group("/questions")
		{
			questions.GET("", questionHandler.ListQuestions)
			questions.GET("/:id", handlers.RequireUser(), questionHandler.GetQuestion)
			questions.GET("/:id/results", questionHandler.GetResults)
			questions.GET("/:id/ws", wsHandler.HandleConnection)

			questions.POST("/:id/vote",
				handlers.RateLimitMiddleware(),
				handlers.RequireUser(),
				voteHandler.SubmitVote)

			// Question management for the administrative actor.
			questions.POST("", handlers.RequireAdmin(), questionHandler.CreateQuestion)
			questions.DELETE("/:id", handlers.RequireAdmin(), questionHandler.DeleteQuestion)
		}
	}

	return router
}

// StartServer runs the router on SERVER_PORT (default 8090) in a goroutine.
func StartServer(router *gin.Engine) *Server {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8090"
	}

	srv := &Server{
		&http.Server{
			Addr:    ":" + port,
			Handler: router,
		},
	}

	go func() {
		log.Printf("server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	return srv
}
