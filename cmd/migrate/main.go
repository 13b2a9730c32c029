// Command migrate applies schema.sql to the configured database with the
// environment's table prefix substituted in.
package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"brightpath/internal/config"
	"brightpath/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	schema, err := os.ReadFile("schema.sql")
	if err != nil {
		log.Fatalf("Failed to read schema.sql: %v", err)
	}
	sql := strings.ReplaceAll(string(schema), "{{prefix}}", cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, sql); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	log.Printf("Schema applied (prefix %q)", cfg.TablePrefix)
}
