package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"jansarthi/config"
	"jansarthi/handler"
	"jansarthi/middleware"
	"jansarthi/repository"
	"jansarthi/routes"
	"jansarthi/schema"
	"jansarthi/service"
	"jansarthi/storage"
)

func main() {
	log.SetHandler(text.New(os.Stderr))

	// .env is optional; real deployments set env vars directly
	if err := godotenv.Load(); err != nil {
		log.Infof("no .env file found, using environment variables")
	}

	cfg := config.LoadConfig()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
	)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	log.Infof("connected to database %s", cfg.Database.DBName)

	schema.InitializeDatabase(db)

	store, err := storage.NewMinioStore(
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.UseSSL,
	)
	if err != nil {
		log.Fatalf("failed to set up object storage: %v", err)
	}

	issueRepo := repository.NewIssueRepository(db)
	localityRepo := repository.NewLocalityRepository(db)
	userRepo := repository.NewUserRepository(db)

	photoManager := service.NewPhotoManager(issueRepo, store, service.PhotoConfig{
		MaxPerIssue:  cfg.Photo.MaxPerIssue,
		MaxFileSize:  int64(cfg.Photo.MaxFileSizeBytes),
		AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
		URLExpiry:    time.Duration(cfg.Photo.URLExpiryMinutes) * time.Minute,
	})
	resolver := service.NewRepresentativeResolver(userRepo)
	issueService := service.NewIssueService(issueRepo, localityRepo, userRepo, resolver, photoManager)
	mapService := service.NewMapService(issueRepo)
	localityService := service.NewLocalityService(localityRepo, userRepo, issueRepo)
	userService := service.NewUserService(userRepo, localityRepo)

	auth := middleware.NewAuthMiddleware(userRepo, cfg.Auth.JWTSecret)

	issueHandler := handler.NewIssueHandler(issueService, mapService)
	adminHandler := handler.NewAdminHandler(localityService, userService, issueService)
	publicHandler := handler.NewPublicHandler(localityService)

	router := routes.SetupRoutes(issueHandler, adminHandler, publicHandler, auth)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Infof("listening on %s", addr)
	if err := http.ListenAndServe(addr, corsWrapper(router)); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// corsWrapper adds permissive CORS headers and answers preflight requests.
func corsWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
