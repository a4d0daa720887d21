package main // seed-admin creates admin accounts from the command line

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/funrun2025/registration-service/internal/config"
	"github.com/funrun2025/registration-service/internal/database"
	"github.com/funrun2025/registration-service/internal/repository"
)

// Admin accounts are never created through the HTTP API; this command is
// the only way in.  Run once per office plus once for the main admin and
// the RD/ARD monitor account.
func main() {
	username := flag.String("username", "", "login username (required)")
	password := flag.String("password", "", "initial password (required)")
	name := flag.String("name", "", "display name shown in the dashboard")
	officeCode := flag.String("office", "", "field office code the account belongs to (required)")
	mainAdmin := flag.Bool("main-admin", false, "grant the main admin role")
	monitor := flag.Bool("monitor", false, "grant the read-only RD/ARD monitoring role")
	flag.Parse()

	if *username == "" || *password == "" || *officeCode == "" {
		flag.Usage()
		log.Fatal("username, password and office are required")
	}
	if *mainAdmin && *monitor {
		log.Fatal("an account cannot be both main admin and monitor")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	office, err := repository.NewFieldOfficeRepo(db).GetByCode(ctx, *officeCode)
	if err != nil {
		log.Fatalf("field office %q: %v", *officeCode, err)
	}

	display := *name
	if display == "" {
		display = *username
	}

	id, err := repository.NewAdminRepo(db).Create(ctx, *username, *password, display,
		office.ID, *mainAdmin, *monitor, cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrUsernameExists {
			log.Fatalf("username %q already exists", *username)
		}
		log.Fatalf("create admin: %v", err)
	}
	log.Printf("created admin id=%d username=%s office=%s", id, *username, office.Name)
}
