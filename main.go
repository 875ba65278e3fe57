package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"cantonscan/config"
	"cantonscan/handlers"
	"cantonscan/middleware"
	"cantonscan/services"
	"cantonscan/utils"
)

func main() {
	// 1. Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("=== Configuration ===")
	log.Printf("Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Scan nodes: %d", len(cfg.Scan.Nodes))
	log.Printf("Redis enabled: %v", cfg.Redis.Enabled)

	// 2. Core Services
	geo := utils.NewGeoResolver(cfg.GeoIP.DBPath)
	defer geo.Close()

	discordBot, err := services.NewDiscordBotService(cfg.Alerts.DiscordToken, cfg.Alerts.DiscordChannelID)
	if err != nil {
		log.Printf("Discord bot initialization failed: %v", err)
		log.Println("Discord notifications will be disabled")
		discordBot = nil
	} else {
		defer discordBot.Close()
	}

	client := services.NewScanClient(cfg)
	api := services.NewScanAPI(client, cfg)
	cache := services.NewCacheService(cfg, api)
	alertService := services.NewAlertService(cfg, api, cache, discordBot)

	// 3. Start Background Services
	log.Println("=== Starting Services ===")
	cache.StartWarmer()
	log.Printf("Cache service started, mode: %s", cache.Mode())
	alertService.Start()
	log.Println("Alert service started")

	// 4. Web Server
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.LoggerMiddleware())
	e.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Recovered from panic: %v", r)
					c.Error(fmt.Errorf("internal server error"))
				}
			}()
			return next(c)
		}
	})

	// 5. Handlers and Routes
	h := handlers.NewHandler(cfg, cache, api, client, alertService, geo)

	e.GET("/health", h.GetHealth)
	e.GET("/cache/status", h.GetCacheStatus)
	e.POST("/cache/clear", h.ClearCache)

	apiGroup := e.Group("/api")
	apiGroup.GET("/status", h.GetStatus)
	apiGroup.GET("/network/stats", h.GetNetworkStats)
	apiGroup.GET("/rounds/latest", h.GetLatestRound)
	apiGroup.GET("/validators", h.GetValidators)
	apiGroup.GET("/validators/:id", h.GetValidator)
	apiGroup.GET("/super-validators", h.GetSuperValidators)
	apiGroup.GET("/governance/votes", h.GetGovernanceVotes)
	apiGroup.GET("/governance/votes/:id", h.GetGovernanceVote)
	apiGroup.GET("/updates", h.GetUpdates)
	apiGroup.GET("/updates/:id/:recordTime", h.GetUpdateDetail)
	apiGroup.GET("/activity", h.GetActivity)
	apiGroup.GET("/finops/:validatorID", h.GetValidatorFinOps)
	apiGroup.GET("/alerts/history", h.GetAlertHistory)
	apiGroup.GET("/reports/assemble", h.AssembleReport)
	apiGroup.POST("/reports", h.CreateReport)
	apiGroup.POST("/reports/csv", h.CreateReportCSV)

	// 6. Start Server with Graceful Shutdown
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	go func() {
		log.Printf("Server running on http://%s", serverAddr)
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("shutting down the server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Graceful shutdown initiated...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("Stopping services...")
	alertService.Stop()
	cache.Stop()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
