package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/tejasnaveen/Shakti/common/database"
	"github.com/tejasnaveen/Shakti/internal/config"
	"github.com/tejasnaveen/Shakti/internal/repository"
)

func main() {
	list := flag.Bool("list", false, "print the embedded migrations and exit")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall migration timeout")
	flag.Parse()

	if *list {
		migrations, err := repository.Migrations()
		if err != nil {
			log.Fatalf("Failed to read migrations: %v", err)
		}
		for _, m := range migrations {
			fmt.Printf("%s (%d statements)\n", m.Name, len(repository.SplitStatements(m.SQL)))
		}
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer database.Close(db)

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	n, err := repository.ApplyMigrations(ctx, db)
	if err != nil {
		log.Fatalf("Migration failed after %d statements: %v", n, err)
	}
	fmt.Printf("Migration completed: %d statements applied\n", n)
}
