// Command devtoken prints a bearer token for local development. Login and
// password handling live outside this service; this stands in for them.
//
//	JWT_SECRET=dev go run ./cmd/devtoken -user 1 -name admin -role ADMIN
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/middleware"
)

func main() {
	userID := flag.Int64("user", 1, "user id (claim id)")
	name := flag.String("name", "admin", "username (claim nombreUsuario)")
	role := flag.String("role", string(domain.RoleAdmin), "ADMIN or AUDITOR")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "devtoken: JWT_SECRET is not set")
		os.Exit(1)
	}

	r := domain.Role(*role)
	if !r.IsValid() {
		fmt.Fprintf(os.Stderr, "devtoken: unknown role %q\n", *role)
		os.Exit(1)
	}

	tok, err := middleware.SignToken([]byte(secret), domain.Actor{UserID: *userID, Username: *name, Role: r}, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
