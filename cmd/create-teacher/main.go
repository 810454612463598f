package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/database"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/repository"
	"github.com/studysaathi/learning-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	reset := flag.Bool("reset-password", false, "Set a new password for an existing account instead of creating one")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Services ───────────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	// Only password hashing is used here, which needs no Redis.
	authService := service.NewAuthService(cfg, nil)
	accountService := service.NewAccountService(userRepo, studentRepo, authService, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	if *reset {
		fmt.Println("=== Reset Account Password ===")
	} else {
		fmt.Println("=== Create New Teacher ===")
	}

	email := prompt(reader, "Enter Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	var name string
	if !*reset {
		name = prompt(reader, "Enter Full Name: ")
		if name == "" {
			fmt.Println("Error: Name is required")
			return
		}
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	password := string(bytePassword)
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	if *reset {
		user, err := userRepo.GetByEmail(ctx, strings.ToLower(email))
		if errors.Is(err, pgx.ErrNoRows) {
			fmt.Printf("Error: no account with email %s\n", email)
			return
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to look up account")
		}
		hash, err := authService.HashPassword(password)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		if err := userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
			log.Fatal().Err(err).Msg("Failed to update password")
		}
		fmt.Printf("\nSuccess! Password updated for '%s' (%s)\n", user.FullName, user.Email)
		return
	}

	profile, err := accountService.Register(ctx, &model.RegisterRequest{
		Email:    email,
		Password: password,
		FullName: name,
		Role:     model.RoleTeacher,
	})
	if errors.Is(err, service.ErrEmailTaken) {
		fmt.Printf("Error: %s is already registered\n", email)
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}

	fmt.Printf("\nSuccess! Teacher '%s' (%s) created with ID: %d\n", profile.User.FullName, profile.User.Email, profile.User.ID)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}
