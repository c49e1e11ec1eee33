package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/clock"
	"github.com/manalBatta/MyHealthPalestine/internal/config"
	"github.com/manalBatta/MyHealthPalestine/internal/storage/postgres"
	transporthttp "github.com/manalBatta/MyHealthPalestine/internal/transport/http"
	"github.com/manalBatta/MyHealthPalestine/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	bookingRepo := postgres.NewBookingRepository(pool)
	bookingSvc := app.NewBookingService(bookingRepo, clock.NewSystem())
	fundingRepo := postgres.NewFundingRepository(pool)
	fundingSvc := app.NewFundingService(fundingRepo, clock.NewSystem())
	inventoryRepo := postgres.NewInventoryRepository(pool)
	inventorySvc := app.NewInventoryService(inventoryRepo, clock.NewSystem())

	auth := transporthttp.NewAuthenticator(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/stripe-webhook", transporthttp.HandleStripeWebhook(fundingSvc, cfg.StripeWebhookSecret))
	mux.Handle("/consultation-slots", auth.Wrap(transporthttp.HandleSlots(bookingSvc)))
	mux.Handle("/consultation-slots/", auth.Wrap(transporthttp.HandleSlotByID(bookingSvc)))
	mux.Handle("/consultations", auth.Wrap(transporthttp.HandleCreateConsultation(bookingSvc)))
	mux.Handle("/consultations/", auth.Wrap(transporthttp.HandleConsultationStatus(bookingSvc)))
	mux.Handle("/treatment-requests", auth.Wrap(transporthttp.HandleTreatments(fundingSvc)))
	mux.Handle("/treatment-requests/", auth.Wrap(transporthttp.HandleTreatmentByID(fundingSvc)))
	mux.Handle("/donations", auth.Wrap(transporthttp.HandleCreateDonation(fundingSvc)))
	mux.Handle("/sponsorship-verifications", auth.Wrap(transporthttp.HandleCreateVerification(fundingSvc)))
	mux.Handle("/sponsorship-verifications/", auth.Wrap(transporthttp.HandleDecideVerification(fundingSvc)))
	mux.Handle("/inventory", auth.Wrap(transporthttp.HandleInventory(inventorySvc)))
	mux.Handle("/medicine-requests", auth.Wrap(transporthttp.HandleCreateMedicineRequest(inventorySvc)))
	mux.Handle("/medicine-requests/", auth.Wrap(transporthttp.HandleMedicineRequestAction(inventorySvc)))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
