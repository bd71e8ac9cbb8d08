package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/raine/storefront/config"
	"github.com/raine/storefront/internal/api"
)

// runSetupWizard runs an interactive wizard to collect the configuration
// the client cannot start without. Returns true if setup was successful.
func runSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("🛒 Storefront - First-time Setup"))
	fmt.Println()

	apiURL := os.Getenv("STOREFRONT_API_URL")
	if apiURL == "" {
		apiURL = api.DefaultBaseURL
	}
	backend := config.BackendSQLite
	var redisURL string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Storefront API URL").
				Description("Base URL of the store's REST API, e.g. https://shop.example.com/api/v1/").
				Value(&apiURL).
				Validate(func(s string) error {
					if err := validateAPIURL(s); err != nil {
						return err
					}
					return checkAPI(s)
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should the session be stored?").
				Options(
					huh.NewOption("Local SQLite file", config.BackendSQLite),
					huh.NewOption("Redis", config.BackendRedis),
				).
				Value(&backend),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Redis URL").
				Description("e.g. redis://localhost:6379/0").
				Value(&redisURL).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("redis URL is required")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return backend != config.BackendRedis }),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	vars := setupVars(apiURL, backend, redisURL, generateTokenKey())

	configPath, err := config.WriteEnvFile(vars)
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		waitOnWindows()
		return false
	}

	// Set values in current process
	for k, v := range vars {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()

	return true
}

func setupVars(apiURL, backend, redisURL, tokenKey string) map[string]string {
	vars := map[string]string{
		"STOREFRONT_API_URL":   apiURL,
		"STOREFRONT_STORAGE":   backend,
		"STOREFRONT_TOKEN_KEY": tokenKey,
	}
	if backend == config.BackendRedis {
		vars["STOREFRONT_REDIS_URL"] = redisURL
	}
	return vars
}

func generateTokenKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based if crypto/rand fails (unlikely)
		return fmt.Sprintf("storefront-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

func validateAPIURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("must be an http or https URL")
	}
	return nil
}

// checkAPI verifies the API is reachable by listing products. Any HTTP
// response counts; only transport failures are rejected.
func checkAPI(baseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := api.NewClient(api.ClientOpts{BaseURL: baseURL, Timeout: 10 * time.Second})
	_, err := client.ListProducts(ctx, api.ProductFilter{})

	var re *api.RequestError
	if errors.As(err, &re) && re.StatusCode == 0 {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.New("connection timed out - check the URL")
		}
		return errors.New("connection failed - check the URL")
	}
	return nil
}

// waitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func waitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// fatalWithWait logs a fatal error and waits on Windows before exiting.
func fatalWithWait(format string, args ...any) {
	log.Error().Msgf(format, args...)
	waitOnWindows()
	os.Exit(1)
}
