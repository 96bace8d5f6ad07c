package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"reciclaai/db"
	"reciclaai/db/migrations"
	"reciclaai/internal/auth"
	"reciclaai/internal/config"
	"reciclaai/internal/geocode"
	"reciclaai/internal/handlers"
	"reciclaai/pkg/logger"
)

func main() {
	log := logger.Must(logger.New())
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		log.Fatal("cannot connect to DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := migrations.Run(cfg.PostgresConn); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	store := db.NewStorage(dbConn)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	geo := geocode.NewClient(cfg.NominatimURL)
	h := handlers.NewHandler(store, tokens, geo, log)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		// аккаунты
		r.Post("/register/producer", h.RegisterProducerHandler)
		r.Post("/register/collector", h.RegisterCollectorHandler)
		r.Post("/register/cooperative", h.RegisterCooperativeHandler)
		r.Post("/login", h.LoginHandler)
		r.Get("/cooperatives", h.ListCooperativesHandler)
		r.Get("/producer/profile", h.ProducerProfileHandler)
		r.Get("/collector/profile", h.CollectorProfileHandler)
		// заявки на сбор
		r.Post("/collections/new", h.CreateCollectionHandler)
		r.Get("/collections/my", h.MyCollectionsHandler)
		r.Get("/collections/available", h.AvailableCollectionsHandler)
		r.Get("/collections/assigned", h.AssignedCollectionsHandler)
		r.Get("/collections/pending", h.PendingCollectionsHandler)
		r.Get("/collections/{collectionId}", h.GetCollectionHandler)
		r.Delete("/collections/{collectionId}", h.DeleteCollectionHandler)
		r.Post("/collections/{collectionId}/accept", h.AcceptCollectionHandler)
		r.Put("/collections/{collectionId}/status", h.UpdateCollectionStatusHandler)
		r.Patch("/collections/{collectionId}/cooperative", h.AssociateCooperativeHandler)
		// оценки
		r.Post("/ratings/producer", h.RateProducerHandler)
		r.Post("/ratings/collector", h.RateCollectorHandler)
		// прайс-лист кооператива
		r.Get("/cooperative/interests", h.GetInterestsHandler)
		r.Post("/cooperative/interests", h.UpdateInterestsHandler)
	})

	log.Info("starting server", zap.String("address", cfg.ServerAddress))
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
