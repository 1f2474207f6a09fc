package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"club-membership-be/internal/bootstrap"
	"club-membership-be/internal/config"
	"club-membership-be/internal/server"
	"club-membership-be/internal/tracer"
	"club-membership-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Tracer shutdown error: %v", err)
		}
	}()

	// 3. Initialize Database
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		var err error
		gormDB, err = database.NewGormDBFromDSN(cfg.Database.Connection, database.Options{
			Verbose: cfg.App.Environment != "production",
		})
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	// 5. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.Start(ctx); err != nil {
		log.Panicf("Unable to start background services: %v", err)
	}

	// 6. Run Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
