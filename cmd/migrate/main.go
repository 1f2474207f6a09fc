package main

import (
	"log"
	"os"

	"club-membership-be/internal/model"
	"club-membership-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, database.Options{Verbose: true})
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Extensions
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	// 4. AutoMigrate
	models := []interface{}{
		&model.MembershipRequest{},
		&model.Payment{},
		&model.Membership{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Constraints AutoMigrate cannot express
	postSQL := []string{
		// at most one current membership per student and club
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_memberships_active_pair ON memberships (student_id, club_id) WHERE status <> 'removed';`,
	}
	for _, sql := range postSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute %q: %v", sql, err)
		}
	}

	log.Println("✅ Migration completed")
}
