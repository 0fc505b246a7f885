// Command create-admin adds an admin account. It prompts for credentials,
// or generates random ones with -generate.
package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/gorm"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/config"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// generateRandomString creates a random hex string of length 2n
func generateRandomString(n int) string {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatal(err)
	}
	return hex.EncodeToString(bytes)
}

// generateUniqueUsername tries until a unique username is found
func generateUniqueUsername(db *gorm.DB) (string, error) {
	for {
		username := "admin_" + generateRandomString(4)
		taken, err := usernameTaken(db, username)
		if err != nil || !taken {
			return username, err
		}
	}
}

func usernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	err := db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func main() {
	generate := flag.Bool("generate", false, "generate a random username and password")
	flag.Parse()

	cfg := config.Load()
	// The admin is created below, not from ADMIN_USERNAME/ADMIN_PASSWORD.
	cfg.AdminUsername, cfg.AdminPassword = "", ""

	db, err := database.GetMainDB(cfg)
	if err != nil {
		log.Fatalf("Database failed to initialize: %v", err)
	}
	defer func() { _ = db.Close() }()

	var username, password string
	if *generate {
		if username, err = generateUniqueUsername(db.DB); err != nil {
			log.Fatalf("failed to pick username: %v", err)
		}
		password = generateRandomString(8)
	} else {
		fmt.Println("Generating admin account")
		reader := bufio.NewReader(os.Stdin)
		username = prompt(reader, "Enter username: ")
		password = prompt(reader, "Enter password: ")
		if prompt(reader, "Confirm password: ") != password {
			fmt.Println("Passwords do not match.")
			return
		}
		if len(password) < auth.MinPasswordLength {
			fmt.Printf("Password must be at least %d characters.\n", auth.MinPasswordLength)
			return
		}
		taken, err := usernameTaken(db.DB, username)
		if err != nil {
			log.Fatalf("failed to check username: %v", err)
		}
		if taken {
			fmt.Println("Username already taken")
			return
		}
	}

	if err := utilities.CreateAdmin(password, username, db.DB); err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}

	fmt.Println("Admin account created successfully!")
	fmt.Println("======================================")
	fmt.Printf("Username: %s\n", username)
	if *generate {
		fmt.Printf("Password: %s\n", password)
	}
	fmt.Println("======================================")
}
