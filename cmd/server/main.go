package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/config"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/conversation"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/customer"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/httpserver"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/llm"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/relay"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/script"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/session"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/storage"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/store"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/telephony"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	steps, faq := script.SelectLanguage(cfg.Language)
	log.Printf("scripts ready, active language: %s", cfg.Language)
	cust := customer.Default()

	calls, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open calls store: %v", err)
	}
	defer func() { _ = calls.Close() }()

	var recordings telephony.Storage
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" {
		sb, err := storage.New(storage.Config{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			log.Fatalf("create recording storage: %v", err)
		}
		recordings = sb
	} else {
		log.Println("Warning: Supabase not configured - recordings will not be archived")
	}

	registry := session.NewRegistry()
	decider := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModelID)
	controller := conversation.NewController(registry, decider, steps, faq, cust, customer.DefaultAgentName)

	tel := telephony.New(telephony.Config{
		AccountSID:             cfg.TwilioAccountSID,
		AuthToken:              cfg.TwilioAuthToken,
		PhoneNumber:            cfg.TwilioPhoneNumber,
		PublicHost:             cfg.PublicHost,
		IntelligenceServiceSID: cfg.IntelligenceServiceSID,
	}, recordings, calls, steps, cust, customer.DefaultAgentName)

	e := httpserver.New(tel, relay.NewHandler(controller))

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
