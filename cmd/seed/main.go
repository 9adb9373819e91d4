// Command main fills the configured store with demo users and posts.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"scribe/internal/bootstrap"
	"scribe/internal/cache"
	"scribe/internal/config"
	"scribe/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 10, "Number of users to create")
	numPosts := flag.Int("posts", 40, "Number of posts to create")
	maxDays := flag.Int("days", 90, "Spread posting dates over this many days")
	fixture := flag.String("fixture", "", "Load users and posts from a YAML fixture instead of generating them")
	dryRun := flag.Bool("dry-run", false, "Build data without writing it")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	log.Println("🌱 Scribe Seeder")
	log.Println("================")

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() {
		_ = store.Close(context.Background())
		if rdb != nil {
			_ = rdb.Close()
		}
	}()

	s := seed.NewSeeder(store, seed.Options{
		NumUsers: *numUsers,
		NumPosts: *numPosts,
		MaxDays:  *maxDays,
		DryRun:   *dryRun,
		RandSeed: *randSeed,
	})

	var res *seed.Result
	if *fixture != "" {
		log.Printf("Loading fixture %s", *fixture)
		fx, err := seed.LoadFixtureFile(*fixture)
		if err != nil {
			log.Fatalf("❌ Fixture load failed: %v", err)
		}
		res, err = s.ApplyFixture(ctx, fx)
		if err != nil {
			log.Fatalf("❌ Fixture seeding failed: %v", err)
		}
	} else {
		log.Printf("Target: %d users, %d posts", *numUsers, *numPosts)
		res, err = s.Run(ctx)
		if err != nil {
			log.Fatalf("❌ Seeding failed: %v", err)
		}
	}

	// Cached feed pages predate the new posts.
	cache.InvalidateFeed(ctx)

	log.Printf("✨ All done! %d users and %d posts written.", res.Users, res.Posts)
	log.Printf("📧 Generated users have the password: %s", seed.DefaultPassword)
}
