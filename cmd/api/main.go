package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/config"
	"github.com/klinikpos/clinicsyncgo/internal/database"
	"github.com/klinikpos/clinicsyncgo/internal/handlers"
	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/klinikpos/clinicsyncgo/internal/ocr"
	"github.com/klinikpos/clinicsyncgo/internal/outbox"
	"github.com/klinikpos/clinicsyncgo/internal/services/medula"
	"github.com/klinikpos/clinicsyncgo/internal/services/records"
	"github.com/klinikpos/clinicsyncgo/internal/store"
	"github.com/klinikpos/clinicsyncgo/internal/websocket"
	"github.com/klinikpos/clinicsyncgo/internal/workflow"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.StorageSlot{},
		&models.OutboxOperation{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. WebSocket hub for cross-terminal change notifications
	hub := websocket.NewHub()
	go hub.Run()

	// 5. Local store over the shared snapshot slots
	localStore := store.New(store.NewGormSlotStore(db.DB))
	localStore.SetNotifier(hub)
	hub.OnStoreChanged(func(slot string) {
		localStore.Reload()
	})
	if err := localStore.Load(); err != nil {
		log.Fatalf("Failed to load local store: %v", err)
	}

	// 6. Outbox queue and background dispatcher
	journal := outbox.NewGormJournal(db.DB)
	queue := outbox.NewQueue(journal)
	dispatcher := outbox.NewDispatcher(journal, cfg.Remote)
	if err := dispatcher.Start(); err != nil {
		log.Printf("⚠️ Outbox: Failed to start dispatcher: %v", err)
	}

	// 7. OCR extraction backend
	var extractor ocr.Extractor
	if cfg.OCR.GeminiAPIKey != "" {
		gemini, err := ocr.NewGeminiExtractor(context.Background(), cfg.OCR.GeminiAPIKey, cfg.OCR.Model)
		if err != nil {
			log.Printf("⚠️ OCR: Gemini init failed, falling back to manual entry: %v", err)
			extractor = &ocr.StaticExtractor{Result: ocr.FallbackResult()}
		} else {
			defer gemini.Close()
			extractor = gemini
			log.Println("✅ OCR: Gemini extractor ready")
		}
	} else {
		log.Println("⚠️ OCR: No API key configured, extraction runs in manual-entry mode")
		extractor = &ocr.StaticExtractor{Result: ocr.FallbackResult()}
	}

	// 8. Domain services
	machine := workflow.NewMachine(localStore, queue)
	svc := records.NewService(localStore, queue, machine, extractor)
	remote := medula.NewClient(cfg.Remote)

	// 9. Set up HTTP router
	router := handlers.NewRouter(db, cfg, localStore, svc, machine, dispatcher, remote, hub)

	// 10. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Terminal %s starting on port %s\n", cfg.TerminalID, cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop the outbox dispatcher; pending entries stay queued for next boot
	dispatcher.Stop()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
