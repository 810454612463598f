package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/database"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/repository"
	"github.com/studysaathi/learning-backend/internal/service"
)

var names = []string{
	"Aarav Sharma", "Diya Patel", "Vivaan Gupta", "Ananya Iyer", "Ishaan Reddy",
	"Saanvi Nair", "Kabir Singh", "Meera Joshi", "Arjun Das", "Kavya Menon",
	"Rohan Verma", "Priya Kulkarni", "Aditya Rao", "Nisha Bose", "Dev Malhotra",
	"Tara Chatterjee", "Yash Mehta", "Riya Kapoor", "Neel Banerjee", "Sara Thomas",
}

func main() {
	teacherName := flag.String("teacher", "Demo Teacher", "Teacher the students are linked to (created if missing)")
	teacherEmail := flag.String("teacher-email", "teacher@demo.local", "Email of the demo teacher")
	count := flag.Int("students", 20, "Number of students to create")
	grade := flag.Int("grade", 8, "Grade of the seeded students (1-12)")
	password := flag.String("password", "demo1234", "Password for every seeded account")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	accountService := service.NewAccountService(userRepo, studentRepo, service.NewAuthService(cfg, nil), log)

	fmt.Printf("=== Seeding %d students for %s ===\n", *count, *teacherName)

	_, err = accountService.Register(ctx, &model.RegisterRequest{
		Email:    *teacherEmail,
		Password: *password,
		FullName: *teacherName,
		Role:     model.RoleTeacher,
	})
	switch {
	case err == nil:
		fmt.Printf("Created teacher %s\n", *teacherEmail)
	case errors.Is(err, service.ErrEmailTaken):
		fmt.Printf("Teacher %s already exists\n", *teacherEmail)
	default:
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}

	successCount := 0
	for i := 0; i < *count; i++ {
		name := names[i%len(names)]
		if i >= len(names) {
			name = fmt.Sprintf("%s %d", name, i/len(names)+1)
		}

		_, err := accountService.Register(ctx, &model.RegisterRequest{
			Email:       fmt.Sprintf("student%d@demo.local", i+1),
			Password:    *password,
			FullName:    name,
			Role:        model.RoleStudent,
			Grade:       *grade,
			TeacherName: *teacherName,
		})
		if err != nil {
			fmt.Printf("Error creating student %s: %v\n", name, err)
			continue
		}
		successCount++
		if (i+1)%10 == 0 {
			fmt.Printf("Created %d students...\n", i+1)
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d students.\n", successCount, *count)
}
