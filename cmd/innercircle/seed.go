package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/innercirclehq/innercircle/internal/invites"
	"github.com/innercirclehq/innercircle/internal/members"
)

// seedEntry is one founding member in the seed file.
type seedEntry struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

func runSeed(args []string) int {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	var dbDSN string

	fs.StringVar(&file, "file", "", "JSON file with founding members")
	fs.StringVar(&dbDSN, "db-dsn", "", "Postgres DSN (defaults to IC_DB_DSN)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if file == "" {
		printSeedUsage()
		return 2
	}

	_ = godotenv.Load()

	if dbDSN == "" {
		dbDSN = strings.TrimSpace(os.Getenv("IC_DB_DSN"))
	}
	if dbDSN == "" {
		fmt.Fprintln(os.Stderr, "--db-dsn is required (or set IC_DB_DSN)")
		return 2
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read seed file: %v\n", err)
		return 1
	}

	var entries []seedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse seed file: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "Seed file contains no members")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	engine := invites.NewEngine(members.NewPGStore(pool, invites.GenerateCode))

	failed := 0
	for _, entry := range entries {
		member, err := engine.SeedFoundingMember(ctx, invites.Profile{
			TelegramID: entry.TelegramID,
			Username:   entry.Username,
			FirstName:  entry.FirstName,
			LastName:   entry.LastName,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed %d: %v\n", entry.TelegramID, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "Seeded %s (telegram id %d)\n", member.DisplayName(), member.TelegramID)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d entries failed\n", failed, len(entries))
		return 1
	}

	fmt.Fprintln(os.Stdout, "Seeding complete.")
	return 0
}

func printSeedUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  innercircle seed --file founding.json [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "The file is a JSON array of {telegram_id, username, first_name, last_name}.")
	fmt.Fprintln(os.Stderr, "Seeding is idempotent: existing members are left untouched.")
}
