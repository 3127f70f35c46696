package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"legalflow/internal/appointment"
	"legalflow/internal/auth"
	"legalflow/internal/casefile"
	"legalflow/internal/document"
	"legalflow/internal/httpapi"
	"legalflow/internal/message"
	"legalflow/internal/obs"
)

// Overridden at build time via -ldflags.
var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("LEGALFLOW_AUTH_SECRET")
	if secret == "" {
		log.Fatal("missing LEGALFLOW_AUTH_SECRET")
	}

	addr := os.Getenv("LEGALFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	uploadDir := os.Getenv("LEGALFLOW_UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	// Postgres when a DSN is configured, in-memory stores otherwise.
	// The in-memory mode is meant for local development and demos.
	var db *sql.DB
	if dsn := os.Getenv("LEGALFLOW_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var (
		userStore auth.Store
		docStore  document.Store
		caseStore casefile.Store
		apptStore appointment.Store
		msgStore  message.Store
	)
	if db != nil {
		userStore = auth.NewPGStore(db)
		docStore = document.NewPGStore(db)
		caseStore = casefile.NewPGStore(db)
		apptStore = appointment.NewPGStore(db)
		msgStore = message.NewPGStore(db)
	} else {
		userStore = auth.NewInMemory()
		docStore = document.NewInMemory()
		caseStore = casefile.NewInMemory()
		apptStore = appointment.NewInMemory()
		msgStore = message.NewInMemory()
	}

	tokenOpts := []auth.TokenOption{}
	if raw := os.Getenv("LEGALFLOW_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			log.Fatalf("invalid LEGALFLOW_TOKEN_TTL %q", raw)
		}
		tokenOpts = append(tokenOpts, auth.WithTokenTTL(ttl))
	}
	tokens, err := auth.NewTokenService(secret, tokenOpts...)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	authSvc, err := auth.NewService(userStore, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	blobs, err := document.NewBlobStore(uploadDir)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}
	docSvc, err := document.NewService(docStore, blobs, authSvc)
	if err != nil {
		log.Fatalf("document service: %v", err)
	}
	caseSvc, err := casefile.NewService(caseStore)
	if err != nil {
		log.Fatalf("case service: %v", err)
	}
	apptSvc, err := appointment.NewService(apptStore)
	if err != nil {
		log.Fatalf("appointment service: %v", err)
	}
	msgSvc, err := message.NewService(msgStore, authSvc)
	if err != nil {
		log.Fatalf("message service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		ReadyProbe:   httpapi.ReadyProbe{DB: db},
		Version:      version,
		Auth:         authSvc,
		Documents:    docSvc,
		Cases:        caseSvc,
		Appointments: apptSvc,
		Messages:     msgSvc,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting legalflow-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
