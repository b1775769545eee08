// Command tokengen mints an admin access token for local development and
// operational access. Signing parameters come from the same environment
// variables the server reads.
package main

import (
	"flag"
	"fmt"
	"os"

	"profreg/internal/jwtauth"
	"profreg/internal/platform/config"
	id "profreg/pkg/domain"
)

func main() {
	userID := flag.String("user-id", "", "subject user ID (defaults to a fresh ID)")
	role := flag.String("role", "administrator", "role claim: administrator, editor or registrar")
	flag.Parse()

	subject := id.NewUserID()
	if *userID != "" {
		parsed, err := id.ParseUserID(*userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid user ID: %v\n", err)
			os.Exit(1)
		}
		subject = parsed
	}

	cfg := config.FromEnv()
	service := jwtauth.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	token, err := service.GenerateAccessToken(subject, *role, cfg.JWT.AccessTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("subject: %s\nrole: %s\nexpires in: %s\n\n%s\n", subject, *role, cfg.JWT.AccessTTL, token)
}
