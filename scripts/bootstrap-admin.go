// Command bootstrap-admin provisions an administrator account.
// Registration through the API always assigns the regular user role,
// so the first admin is created (or an existing account promoted)
// with this script.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/draftline/draftline/internal/auth"
	"github.com/draftline/draftline/internal/model"
	"github.com/draftline/draftline/internal/repository"
)

type output struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Promoted bool   `json:"promoted"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		username    = flag.String("username", "admin", "Admin username")
		email       = flag.String("email", "admin@draftline.local", "Admin email")
		password    = flag.String("password", "", "Admin password (generated when empty)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	out, err := bootstrap(ctx, repo, *username, *email, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	switch strings.ToLower(*format) {
	case "plain":
		if out.Promoted {
			fmt.Printf("promoted %s to admin\n", out.Email)
		} else {
			fmt.Printf("created admin %s\n", out.Email)
			if out.Password != "" {
				fmt.Println(out.Password)
			}
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// bootstrap promotes an existing account or creates a fresh admin.
func bootstrap(ctx context.Context, repo *repository.Repository, username, email, password string) (*output, error) {
	existing, err := repo.GetUserByEmail(ctx, email)
	if err == nil {
		if err := repo.SetUserRole(ctx, email, model.RoleAdmin); err != nil {
			return nil, fmt.Errorf("promote user: %w", err)
		}
		return &output{
			UserID:   existing.ID,
			Username: existing.Username,
			Email:    existing.Email,
			Promoted: true,
		}, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	generated := password == ""
	if generated {
		password, err = randomPassword()
		if err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	out := &output{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
	if generated {
		out.Password = password
	}
	return out, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
