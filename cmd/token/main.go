// Command token mints a development access token for the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/user"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/jwt"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id (required)")
	employeeID := flag.String("employee", "", "employee id, empty for admins without a profile")
	role := flag.String("role", string(user.RoleEmployee), "admin or employee")
	secret := flag.String("secret", os.Getenv("JWT_SECRET_KEY"), "signing secret, defaults to JWT_SECRET_KEY")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" {
		log.Fatal("a signing secret is required: set JWT_SECRET_KEY or pass -secret")
	}

	token, expiresAt, err := jwt.NewJWTService(*secret, *ttl).GenerateAccessToken(user.Actor{
		UserID:     *userID,
		EmployeeID: *employeeID,
		Role:       user.Role(*role),
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", time.Unix(expiresAt, 0).Format(time.RFC3339))
	fmt.Println(token)
}
