package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"goCrashServer/config"
	"goCrashServer/crypto"
	"goCrashServer/db"
)

// Seeds the game_hashes table with a fresh hash chain. Run this before
// first boot and again whenever the chain runs low.
func main() {
	count := flag.Int("count", config.DefaultHashChainLength, "number of hashes to generate")
	batch := flag.Int("batch", 1000, "rows per insert")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using environment variables")
	}

	if err := db.InitPostgres(); err != nil {
		log.Fatalf("❌ Failed to init postgres: %v", err)
	}
	defer db.ClosePostgres()

	store, err := db.NewStore(db.PostgresPool, nil)
	if err != nil {
		log.Fatalf("❌ Failed to create store: %v", err)
	}

	log.Printf("🔐 Generating hash chain of %d links...", *count)
	start := time.Now()
	chain := crypto.GenerateHashChain(*count)

	ctx := context.Background()
	for i := 0; i < len(chain); i += *batch {
		end := i + *batch
		if end > len(chain) {
			end = len(chain)
		}
		if err := store.InsertGameHashes(ctx, chain[i:end]); err != nil {
			log.Fatalf("❌ Failed to insert hashes at offset %d: %v", i, err)
		}
		if i > 0 && i%(*batch*100) == 0 {
			log.Printf("📥 Inserted %d of %d hashes", i, len(chain))
		}
	}

	log.Printf("✅ Seeded %d game hashes in %v", len(chain), time.Since(start).Round(time.Millisecond))
}
