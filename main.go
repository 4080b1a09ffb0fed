package main

import (
	"adgate/cli"
	"adgate/config"
	"adgate/database"
	"adgate/handlers"
	"adgate/service"
	"adgate/state"
	"adgate/store"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present, then parse flags over the environment
	_ = godotenv.Load()
	config.ParseFlags()

	// CLI mode talks to a running server over HTTP; no database, no log file
	if config.Settings.CLIMode {
		log.SetFlags(log.Ldate | log.Ltime)
		cli.Run(config.Settings.CLIServer, config.Settings.CLIToken)
		return
	}

	logFile, err := setupLogging(config.Settings.LogFilePath)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("System starting up...")

	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	service.InitServices(store.NewGormStore(database.DB), state.Global)

	if config.Settings.AdUnlockSecret == "" {
		log.Println("Warning: QUIZ_AD_UNLOCK_SECRET is not set; ticket issuance is disabled")
	}

	if config.Settings.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Direct Gin logs to the configured log file
	gin.DefaultWriter = log.Writer()
	gin.DefaultErrorWriter = log.Writer()
	gin.DisableConsoleColor()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	handlers.RegisterRoutes(r)

	addr := fmt.Sprintf("0.0.0.0:%d", config.Settings.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on http://127.0.0.1:%d", config.Settings.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Received interrupt signal")

	log.Println("System shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if err := database.CloseDB(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}
