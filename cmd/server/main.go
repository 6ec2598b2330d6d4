package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/events"
	"github.com/givehub/backend/internal/handlers"
	appMiddleware "github.com/givehub/backend/internal/middleware"
	"github.com/givehub/backend/internal/services"
	"github.com/givehub/backend/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store, err := storage.NewJSONStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open data dir: %v", err)
	}

	userService, err := services.NewUserService(store)
	if err != nil {
		log.Fatalf("Failed to initialize user service: %v", err)
	}

	var (
		profileService  services.ProfileService
		donationService services.DonationService
		requestService  services.RequestService
	)
	if cfg.MongoURI != "" {
		mongoProfiles, err := services.NewMongoProfileService(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to connect profiles to MongoDB: %v", err)
		}
		profileService = mongoProfiles

		donationService, err = services.NewMongoDonationService(ctx, cfg.MongoURI, cfg.MongoDB, userService, profileService)
		if err != nil {
			log.Fatalf("Failed to connect donations to MongoDB: %v", err)
		}
		requestService, err = services.NewMongoRequestService(ctx, cfg.MongoURI, cfg.MongoDB, userService, profileService)
		if err != nil {
			log.Fatalf("Failed to connect requests to MongoDB: %v", err)
		}
	} else {
		jsonProfiles, err := services.NewJSONProfileService(store)
		if err != nil {
			log.Fatalf("Failed to initialize profile service: %v", err)
		}
		profileService = jsonProfiles

		donationService, err = services.NewJSONDonationService(store, userService, profileService)
		if err != nil {
			log.Fatalf("Failed to initialize donation service: %v", err)
		}
		requestService, err = services.NewJSONRequestService(store, userService, profileService)
		if err != nil {
			log.Fatalf("Failed to initialize request service: %v", err)
		}
	}

	imageService, err := services.NewImageService(cfg.UploadDir, store)
	if err != nil {
		log.Fatalf("Failed to initialize image service: %v", err)
	}

	hub := events.NewHub()

	authHandler := handlers.NewAuthHandler(userService, cfg.JWTSecret, cfg.JWTExpiration)
	donationHandler := handlers.NewDonationHandler(donationService, hub)
	requestHandler := handlers.NewRequestHandler(requestService, hub)
	profileHandler := handlers.NewProfileHandler(profileService)
	imageHandler := handlers.NewImageHandler(imageService, cfg.MaxUploadSizeMB)
	updatesHandler := handlers.NewUpdatesHandler(hub)

	// Auth middleware: Firebase ID tokens when a project is configured,
	// local JWT otherwise.
	requireAuth := appMiddleware.JWTAuth(cfg.JWTSecret)
	if cfg.FirebaseProjectID != "" {
		authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth client: %v", err)
		}
		requireAuth = appMiddleware.FirebaseAuth(authClient)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Get("/donations", donationHandler.List)
		r.Get("/donations/{donationId}", donationHandler.Get)
		r.Get("/requests", requestHandler.List)
		r.Get("/requests/{requestId}", requestHandler.Get)

		// Change feed for reactive clients
		r.Get("/updates", updatesHandler.Poll)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", authHandler.Me)

			r.Post("/donations", donationHandler.Create)
			r.Get("/donations/mine", donationHandler.Mine)
			r.Post("/donations/{donationId}/reserve", donationHandler.Reserve)
			r.Post("/donations/{donationId}/complete", donationHandler.Complete)

			r.Post("/requests", requestHandler.Create)
			r.Get("/requests/mine", requestHandler.Mine)
			r.Post("/requests/{requestId}/fulfill", requestHandler.Fulfill)

			r.Get("/profile", profileHandler.GetProfile)
			r.Get("/profiles/{userId}", profileHandler.GetProfileByUserID)

			r.Post("/upload", imageHandler.Upload)
			r.Delete("/upload/{imageId}", imageHandler.Delete)
		})
	})

	// Serve uploaded files
	workDir, _ := os.Getwd()
	filesDir := http.Dir(workDir + "/" + cfg.UploadDir)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(filesDir)))

	log.Printf("GiveHub API server starting on %s", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
