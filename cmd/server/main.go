package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/config"
	"github.com/funrun2025/registration-service/internal/database"
	"github.com/funrun2025/registration-service/internal/handler"
	"github.com/funrun2025/registration-service/internal/notify"
	"github.com/funrun2025/registration-service/internal/queue"
	"github.com/funrun2025/registration-service/internal/repository"
	"github.com/funrun2025/registration-service/internal/router"
	"github.com/funrun2025/registration-service/internal/storage"
)

func main() {
	// Load .env for local development; in deployments the variables come
	// from the environment and the file is simply absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: the rate limiter and response cache degrade to
	// in-memory / pass-through behaviour when the client is nil.
	rdb := config.NewRedisClient()

	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// Change feed: publish on writes, consume into the notification
	// manager.  The consumer reconnects on its own; a dead broker only
	// degrades notifications, never registration itself.
	publisher := queue.NewPublisher()
	manager := notify.NewManager(publisher)
	defer manager.Close()
	go queue.StartConsumer(manager)

	offices := repository.NewFieldOfficeRepo(db)
	admins := repository.NewAdminRepo(db)
	regs := repository.NewRegistrationRepo(db)

	authH := handler.NewAuthHandler(cfg, admins, offices)
	publicH := handler.NewPublicHandler(offices, regs, files, publisher)
	adminH := handler.NewAdminHandler(regs, files, publisher)
	notifH := handler.NewNotificationHandler(manager)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPublic(e, publicH, rdb)
	router.RegisterAuth(e, authH, rdb, cfg.SessionSecret)
	router.RegisterAdmin(e, adminH, notifH, cfg.SessionSecret)
	router.RegisterMonitor(e, adminH, notifH, rdb, cfg.SessionSecret)
	router.RegisterAreas(e, cfg.SessionSecret, "web/dist")

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
