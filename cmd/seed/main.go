package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"residentportal/internal/auth"
	"residentportal/internal/config"
	"residentportal/internal/db"
	"residentportal/internal/logging"
	"residentportal/internal/model"
	"residentportal/internal/repository"
	"residentportal/internal/service"
)

func main() {
	email := flag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "admin email address (SEED_ADMIN_EMAIL)")
	firstName := flag.String("first-name", "Portal", "admin first name")
	lastName := flag.String("last-name", "Administrator", "admin last name")
	flag.Parse()

	log.Println("Starting seed script...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if strings.TrimSpace(*email) == "" {
		log.Fatal("An admin email is required: pass -email or set SEED_ADMIN_EMAIL")
	}

	password, err := readPassword()
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}

	// Connect to database
	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB, false); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashWorkers)
	if err != nil {
		log.Fatalf("Failed to build password hasher: %v", err)
	}

	accounts := service.NewAccountService(repository.NewAccountRepository(gormDB), hasher, logger, cfg.MinPasswordLength)
	account, created, err := accounts.SeedAdmin(context.Background(), service.RegisterInput{
		Email:    *email,
		Password: password,
		Profile:  model.Profile{FirstName: *firstName, LastName: *lastName},
	})
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	if created {
		log.Printf("Seed completed: created admin %s (%s)", account.Email, account.ID)
	} else {
		log.Printf("Seed completed: promoted existing account %s (%s) to admin", account.Email, account.ID)
	}
}

// readPassword takes the password from SEED_ADMIN_PASSWORD, falling back to
// an interactive prompt with echo disabled.
func readPassword() (string, error) {
	if p := os.Getenv("SEED_ADMIN_PASSWORD"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("SEED_ADMIN_PASSWORD is not set and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Admin password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
