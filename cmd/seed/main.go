package main

import (
	"context"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskhub/internal/config"
	"taskhub/internal/db"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

type seedUser struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

type seedTask struct {
	Title         string
	Description   string
	Priority      model.Priority
	DueInDays     int
	AssigneeEmail string
	Checklist     []model.ChecklistItem
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	users := repository.NewUserRepository(gormDB)
	tasks := repository.NewTaskRepository(gormDB)

	fixtures := []seedUser{
		{
			Name:     getEnv("SEED_ADMIN_NAME", "Admin"),
			Email:    getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
			Password: getEnv("SEED_ADMIN_PASSWORD", "admin123"),
			Role:     model.RoleAdmin,
		},
		{Name: "Alice Carter", Email: "alice@example.com", Password: "password", Role: model.RoleMember},
		{Name: "Bob Okafor", Email: "bob@example.com", Password: "password", Role: model.RoleMember},
	}

	byEmail := make(map[string]*model.User, len(fixtures))
	for _, fixture := range fixtures {
		user, err := upsertUser(ctx, users, fixture)
		if err != nil {
			log.Fatalf("Failed to seed user %s: %v", fixture.Email, err)
		}
		byEmail[fixture.Email] = user
	}
	log.Printf("Seeded %d users", len(fixtures))

	admin := byEmail[getEnv("SEED_ADMIN_EMAIL", "admin@example.com")]
	demoTasks := []seedTask{
		{
			Title:         "Prepare onboarding docs",
			Description:   "Write the getting-started guide for new members.",
			Priority:      model.PriorityHigh,
			DueInDays:     7,
			AssigneeEmail: "alice@example.com",
			Checklist: []model.ChecklistItem{
				{Text: "Draft outline", Done: true},
				{Text: "Review with team", Done: false},
				{Text: "Publish", Done: false},
			},
		},
		{
			Title:         "Clean up stale branches",
			Priority:      model.PriorityLow,
			DueInDays:     14,
			AssigneeEmail: "bob@example.com",
			Checklist: []model.ChecklistItem{
				{Text: "List branches older than 90 days", Done: false},
			},
		},
	}

	created := 0
	for _, fixture := range demoTasks {
		assignee, ok := byEmail[fixture.AssigneeEmail]
		if !ok {
			continue
		}
		task := &model.Task{
			Title:       fixture.Title,
			Description: fixture.Description,
			Priority:    fixture.Priority,
			Status:      model.StatusTodo,
			DueDate:     time.Now().AddDate(0, 0, fixture.DueInDays),
			Assignees:   []model.User{*assignee},
			CreatedByID: admin.ID,
			Checklist:   fixture.Checklist,
		}
		if err := tasks.Create(ctx, task); err != nil {
			log.Fatalf("Failed to seed task %q: %v", fixture.Title, err)
		}
		created++
	}
	log.Printf("Seeded %d tasks", created)
	log.Println("Seed completed")
}

// upsertUser creates the user if the email is new, otherwise leaves the
// existing record untouched so repeated seeding does not reset passwords.
func upsertUser(ctx context.Context, users repository.UserRepository, fixture seedUser) (*model.User, error) {
	existing, err := users.FindByEmail(ctx, fixture.Email)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(fixture.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:         fixture.Name,
		Email:        fixture.Email,
		PasswordHash: string(hashed),
		Role:         fixture.Role,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
