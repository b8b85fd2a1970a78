package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catchup-rag-be/internal/bootstrap"
	"catchup-rag-be/internal/config"
	"catchup-rag-be/internal/server"
	"catchup-rag-be/internal/tracer"
	"catchup-rag-be/internal/websocket"
	"catchup-rag-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	if container.AuditService != nil {
		go func() {
			log.Println("Background: Starting Audit Trail...")
			if err := container.AuditService.Start(); err != nil {
				log.Printf("Background Audit Error: %v", err)
			}
		}()
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Graceful Shutdown: warn connected tabs before dropping them.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down: notifying connected clients")
		container.WebSocketHub.Broadcast(websocket.ChatNotification{
			Type:      "maintenance_shutdown",
			CreatedAt: time.Now(),
		})
		if err := srv.GetApp().ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
