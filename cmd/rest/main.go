package main

import (
	"context"
	"log"

	"club-hipico-be/internal/bootstrap"
	"club-hipico-be/internal/config"
	"club-hipico-be/internal/server"
	"club-hipico-be/internal/tracer"
	"club-hipico-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (enabled with OTEL_ENABLED=true)
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

	// 4. Start Background Workers (dispatcher, digests, scheduler)
	container.Start(context.Background())

	// 5. Initialize and Run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
