// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// StoreKind selects the backing store for challenge records.
type StoreKind string

const (
	// StoreIssue keeps challenge records inside the issue body itself.
	StoreIssue StoreKind = "issue"
	// StoreSQLite keeps challenge records in a local SQLite database.
	StoreSQLite StoreKind = "sqlite"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken     string
	Org             string
	ListenAddr      string
	WebhookSecret   string
	Store           StoreKind
	DBPath          string
	CopyConcurrency int

	GreenhouseAPIKey   string
	GreenhouseUsername string
	GreenhousePassword string
}

// Load reads configuration from environment variables and returns a validated
// Config. CHALLENGE_GITHUB_TOKEN and CHALLENGE_ORG are required.
// Optional variables with defaults: CHALLENGE_LISTEN_ADDR (127.0.0.1:8080),
// CHALLENGE_STORE (issue), CHALLENGE_DB_PATH (challengebot.db),
// CHALLENGE_COPY_CONCURRENCY (4). CHALLENGE_WEBHOOK_SECRET is optional but
// strongly recommended; without it webhook signatures are not verified.
// GREENHOUSE_API_KEY authenticates inbound Greenhouse requests, and
// GREENHOUSE_USERNAME / GREENHOUSE_PASSWORD authenticate our outbound
// completion calls; all three are optional when Greenhouse is not used.
func Load() (*Config, error) {
	token := os.Getenv("CHALLENGE_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("CHALLENGE_GITHUB_TOKEN is required")
	}

	org := os.Getenv("CHALLENGE_ORG")
	if org == "" {
		return nil, fmt.Errorf("CHALLENGE_ORG is required")
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CHALLENGE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	store := StoreIssue
	if v, ok := os.LookupEnv("CHALLENGE_STORE"); ok {
		switch StoreKind(v) {
		case StoreIssue, StoreSQLite:
			store = StoreKind(v)
		default:
			return nil, fmt.Errorf("CHALLENGE_STORE has invalid value %q: want %q or %q", v, StoreIssue, StoreSQLite)
		}
	}

	dbPath := "challengebot.db"
	if v, ok := os.LookupEnv("CHALLENGE_DB_PATH"); ok {
		dbPath = v
	}

	concurrency := 4
	if v, ok := os.LookupEnv("CHALLENGE_COPY_CONCURRENCY"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("CHALLENGE_COPY_CONCURRENCY has invalid value %q: want a positive integer", v)
		}
		concurrency = parsed
	}

	return &Config{
		GitHubToken:        token,
		Org:                org,
		ListenAddr:         listenAddr,
		WebhookSecret:      os.Getenv("CHALLENGE_WEBHOOK_SECRET"),
		Store:              store,
		DBPath:             dbPath,
		CopyConcurrency:    concurrency,
		GreenhouseAPIKey:   os.Getenv("GREENHOUSE_API_KEY"),
		GreenhouseUsername: os.Getenv("GREENHOUSE_USERNAME"),
		GreenhousePassword: os.Getenv("GREENHOUSE_PASSWORD"),
	}, nil
}
