package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"

	"github.com/AdamOzgary/blog/internal/config"
	"github.com/AdamOzgary/blog/internal/db"
)

var flags = flag.NewFlagSet("migrate", flag.ExitOnError)

func main() {
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		log.Fatal("Usage: migrate COMMAND\n\nCommands:\n  up\n  down\n  status")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	provider, err := db.NewMigrator(conn)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}

	ctx := context.Background()
	command := args[0]
	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		for _, r := range results {
			log.Printf("applied %s (%s)", r.Source.Path, r.Duration)
		}
	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Printf("rolled back %s", r.Source.Path)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			log.Fatalf("Migration status failed: %v", err)
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			log.Printf("%-6d %-30s %s", s.Source.Version, filepath.Base(s.Source.Path), applied)
		}
	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
