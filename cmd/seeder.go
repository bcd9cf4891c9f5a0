package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/talenthub/performance-management/internal/identity"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample departments and users for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := gorm.Open(gormpg.Open(cfg.Database.Source), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"users", "departments"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing users and departments")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		departments := []identity.Department{
			{Name: "Engineering", Description: "Product engineering and infrastructure"},
			{Name: "Product", Description: "Product management and design"},
			{Name: "People Operations", Description: "HR, recruiting and people programs"},
		}
		deptIDs := make(map[string]int64, len(departments))
		for i := range departments {
			d := &departments[i]
			if err := db.Where("name = ?", d.Name).FirstOrCreate(d).Error; err != nil {
				log.Fatalf("failed to seed department %s: %v", d.Name, err)
			}
			deptIDs[d.Name] = d.ID
		}
		fmt.Println("Seeded departments:", len(departments))

		yearsAgo := func(n int) time.Time {
			return time.Now().AddDate(-n, 0, 0)
		}

		seedUser := func(email, name, role string, departmentID int64, managerID *int64, hireDate time.Time) int64 {
			u := identity.User{
				Email:        email,
				Name:         name,
				PasswordHash: string(hash),
				Role:         role,
				DepartmentID: departmentID,
				ManagerID:    managerID,
				HireDate:     hireDate,
				IsActive:     true,
			}
			if err := db.Where("email = ?", email).FirstOrCreate(&u).Error; err != nil {
				log.Fatalf("failed to seed user %s: %v", email, err)
			}
			return u.ID
		}

		adminID := seedUser("hr.admin@talenthub.dev", "Harper Ruiz",
			identity.RoleHRAdmin, deptIDs["People Operations"], nil, yearsAgo(5))

		engManagerID := seedUser("eng.manager@talenthub.dev", "Morgan Blake",
			identity.RoleManager, deptIDs["Engineering"], nil, yearsAgo(4))
		productManagerID := seedUser("product.manager@talenthub.dev", "Dana Osei",
			identity.RoleManager, deptIDs["Product"], nil, yearsAgo(3))

		seedUser("iris.chen@talenthub.dev", "Iris Chen",
			identity.RoleIndividualContributor, deptIDs["Engineering"], &engManagerID, yearsAgo(2))
		seedUser("pat.lee@talenthub.dev", "Pat Lee",
			identity.RoleIndividualContributor, deptIDs["Engineering"], &engManagerID, yearsAgo(1))
		seedUser("sam.novak@talenthub.dev", "Sam Novak",
			identity.RoleIndividualContributor, deptIDs["Product"], &productManagerID, yearsAgo(2))

		// Hired within the default 90-day probation window, so excluded
		// when a cycle is started with exclude_probationary enabled.
		seedUser("riley.kim@talenthub.dev", "Riley Kim",
			identity.RoleIndividualContributor, deptIDs["Engineering"], &engManagerID,
			time.Now().AddDate(0, -1, 0))

		fmt.Println("Seeded users; HR admin id:", adminID)
		fmt.Println("All seeded accounts use the password: password")
	},
}
