// Command admin is an operational tool for user administration: promoting
// mediators, creating accounts, and minting development bearer tokens.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch flag.Arg(0) {
	case "create-user":
		if flag.NArg() != 4 {
			log.Fatal("usage: admin create-user <username> <email> <password>")
		}
		createUser(db, flag.Arg(1), flag.Arg(2), flag.Arg(3))
	case "promote":
		setAdmin(db, flag.Arg(1), true)
	case "demote":
		setAdmin(db, flag.Arg(1), false)
	case "token":
		if flag.NArg() != 2 {
			log.Fatal("usage: admin token <user-id>")
		}
		mintToken(cfg, flag.Arg(1))
	case "list":
		listUsers(db)
	default:
		usage()
	}
}

func usage() {
	log.Fatal("usage: admin <create-user|promote|demote|token|list> [args]")
}

func createUser(db *gorm.DB, username, email, password string) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	user := models.User{Username: username, Email: email, Password: string(hashed)}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	log.Printf("Created user %d (%s)", user.ID, user.Username)
}

func setAdmin(db *gorm.DB, username string, isAdmin bool) {
	if username == "" {
		log.Fatal("usage: admin promote|demote <username>")
	}
	result := db.Model(&models.User{}).Where("username = ?", username).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		log.Fatalf("Failed to update user: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		log.Fatalf("No user named %q", username)
	}
	log.Printf("User %q admin=%v", username, isAdmin)
}

// mintToken issues a short-lived HMAC bearer token for local testing. The
// production token issuer lives in the identity service.
func mintToken(cfg *config.Config, rawID string) {
	userID, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		log.Fatalf("Invalid user ID %q: %v", rawID, err)
	}

	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(userID, 10),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(signed)
}

func listUsers(db *gorm.DB) {
	var users []models.User
	if err := db.Order("id").Find(&users).Error; err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}
	for _, u := range users {
		role := "user"
		if u.IsAdmin {
			role = "admin"
		}
		fmt.Printf("%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, role)
	}
}
