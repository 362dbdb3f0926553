package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"approval_history", "approval_steps", "expenses", "company_policies", "users"} {
				if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		const companyID = 1

		seedUser(db, companyID, "admin@mail.com", "Ada Admin", "admin", string(hash), nil, false)
		adminID := userID(db, "admin@mail.com")

		seedUser(db, companyID, "fiona@mail.com", "Fiona Finance", "manager", string(hash), &adminID, true)
		financeID := userID(db, "fiona@mail.com")

		seedUser(db, companyID, "mark@mail.com", "Mark Manager", "manager", string(hash), &financeID, true)
		markID := userID(db, "mark@mail.com")

		seedUser(db, companyID, "emma@mail.com", "Emma Employee", "employee", string(hash), &markID, true)

		var exists int
		row := db.Raw("SELECT 1 FROM company_policies WHERE company_id = ?", companyID).Row()
		if err := row.Scan(&exists); err != nil {
			insert := `INSERT INTO company_policies
				(company_id, company_currency, manager_approval, finance_approval, director_approval,
				 percentage_rule_enabled, percentage_threshold,
				 specific_rule_enabled, specific_role,
				 hybrid_rule_enabled, hybrid_percentage, hybrid_role,
				 created_at, updated_at)
				VALUES (?, 'USD', 0, 5000, 10000, true, 60, false, '', false, 0, '', now(), now())`
			if err := db.Exec(insert, companyID).Error; err != nil {
				log.Fatalf("failed to insert company policy: %v", err)
			}
			fmt.Println("Seeded company policy for company", companyID)
		}

		fmt.Println("Seeding complete; all users share the password:", password)
	},
}

func seedUser(db *gorm.DB, companyID int64, email, name, role, hash string, managerID *int64, isManagerApprover bool) {
	var exists int
	row := db.Raw("SELECT 1 FROM users WHERE email = ?", email).Row()
	if err := row.Scan(&exists); err == nil {
		fmt.Println("user already exists:", email)
		return
	}

	insert := `INSERT INTO users
		(company_id, email, name, password_hash, role, manager_id, is_manager_approver, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, true, now(), now())`
	if err := db.Exec(insert, companyID, email, name, hash, role, managerID, isManagerApprover).Error; err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}
	fmt.Println("Seeded user:", email)
}

func userID(db *gorm.DB, email string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&id); err != nil {
		log.Fatalf("failed to lookup user id for %s: %v", email, err)
	}
	return id
}
