package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"pairchat/internal/blob"
	"pairchat/internal/chat"
	"pairchat/internal/db"
	myMiddleware "pairchat/internal/middleware"
	"pairchat/internal/user"
)

func main() {
	// 1. Config & Flags
	addr := flag.String("addr", ":8080", "http service address")
	heartbeatTimeout := flag.Duration("heartbeat-timeout", 15*time.Second, "max gap between client heartbeats before eviction")
	sweepInterval := flag.Duration("sweep-interval", 5*time.Second, "how often the stale-connection sweep runs")
	requireAuth := flag.Bool("require-auth", true, "reject websocket connections without a session token")
	flag.Parse()

	// Get Secrets from Environment (Docker)
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("❌ DB_DSN is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("❌ JWT_SECRET is not set")
	}

	// 2. Connect to Database (Platform Layer)
	database, err := db.NewDatabase(dsn)
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database Schema Initialized")

	// 3. Blob backend: local disk by default, Redis when configured
	blobs := newBlobStore()

	// 4. Initialize User Feature
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, jwtSecret)
	userHandler := user.NewHandler(userService)

	// 5. Initialize Chat Feature
	chatRepo := chat.NewRepository(database.Conn)
	ingest := chat.NewIngest(blobs)
	hub := chat.NewHub(chatRepo, ingest, chat.Config{
		HeartbeatTimeout: *heartbeatTimeout,
		SweepInterval:    *sweepInterval,
		RequireAuth:      *requireAuth,
	})

	// Start the stale-connection sweep
	go hub.Run(context.Background())

	gate := chat.NewAuthGate(userService)
	chatHandler := chat.NewHandler(hub, gate, chatRepo, blobs)

	authMiddleware := myMiddleware.NewAuthMiddleware(userService)

	// 6. Define Routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public Routes
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"Ok, Api is working correctly"`))
	})

	// Websocket: the auth gate runs after the upgrade so a reject can carry
	// a distinct close code, so this route stays outside the middleware.
	r.Get("/ws", chatHandler.ServeWs)

	// Stored attachments
	r.Get("/uploads/{name}", chatHandler.ServeUpload)

	// Protected Routes (Require JWT)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/profile", userHandler.Profile)
		r.Get("/people", userHandler.People)
		r.Get("/messages/{userID}", chatHandler.GetMessages)
		r.Post("/logout", userHandler.Logout)
	})

	log.Printf("🚀 Server starting on %s", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal(err)
	}
}

// newBlobStore picks the attachment backend. BLOB_BACKEND=redis stores
// blobs in Redis (REDIS_ADDR, default localhost:6379); anything else uses
// the local uploads directory (UPLOAD_DIR, default ./uploads).
func newBlobStore() blob.Store {
	if os.Getenv("BLOB_BACKEND") == "redis" {
		redisAddr := os.Getenv("REDIS_ADDR")
		if redisAddr == "" {
			redisAddr = "localhost:6379"
		}
		redisClient := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Connected to Redis (blob backend)")
		return blob.NewRedisStore(redisClient)
	}

	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	store, err := blob.NewDiskStore(dir)
	if err != nil {
		log.Fatalf("❌ Failed to prepare uploads dir: %v", err)
	}
	log.Printf("✅ Storing uploads under ./%s", dir)
	return store
}
