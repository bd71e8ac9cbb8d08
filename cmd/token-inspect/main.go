// Command token-inspect prints the session an access token decodes to.
// Without an argument it inspects the token pair persisted by the client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/raine/storefront/config"
	"github.com/raine/storefront/internal/auth"
	"github.com/raine/storefront/internal/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.Parse()

	token := flag.Arg(0)
	if token == "" {
		var err error
		token, err = storedAccessToken(configPath)
		if err != nil {
			fmt.Printf("Failed to load stored tokens: %v\n", err)
			os.Exit(1)
		}
		if token == "" {
			fmt.Println("No tokens stored. Log in first or pass a token as the argument.")
			os.Exit(1)
		}
	}

	s, err := auth.Derive(token)
	if err != nil {
		fmt.Printf("Failed to decode token: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	fmt.Printf("Subject:     %s\n", s.Subject)
	fmt.Printf("User ID:     %s\n", s.UserID)
	fmt.Printf("Token type:  %s\n", s.TokenType)
	fmt.Printf("Staff:       %t\n", s.IsPrivileged)
	fmt.Printf("Superuser:   %t\n", s.IsSuperuser)
	if s.ExpiresAt.IsZero() {
		fmt.Println("Expires:     never")
		return
	}
	fmt.Printf("Expires:     %s (%s)\n", s.ExpiresAt.Local().Format(time.RFC3339), humanize.Time(s.ExpiresAt))
	if s.IsExpired(now) {
		fmt.Println("Status:      expired")
	} else {
		fmt.Printf("Status:      valid for %s\n", s.ExpiresIn(now).Round(time.Second))
	}
}

func storedAccessToken(configPath string) (string, error) {
	ctx := context.Background()

	config.LoadEnvFile()
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	key, err := storage.DeriveKey(cfg.TokenKey)
	if err != nil {
		return "", err
	}

	var store storage.Store
	if cfg.Storage.Backend == config.BackendRedis {
		store, err = storage.NewRedisStore(ctx, cfg.Storage.RedisURL, cfg.Storage.RedisPrefix, key)
	} else {
		store, err = storage.NewSQLiteStore(cfg.Storage.DBPath, key)
	}
	if err != nil {
		return "", err
	}
	defer store.Close()

	pair, found, err := store.LoadTokens(ctx)
	if err != nil || !found {
		return "", err
	}
	return pair.Access, nil
}
