package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spinroom/spinroom/go/internal/dbconfig"
)

// Deletes archived lottery rows older than the cutoff. History is
// display-only, so pruning is always safe for the coordination core.
func main() {
	maxAgeDays := flag.Int("max-age-days", 90, "delete lottery records older than this many days")
	flag.Parse()

	cutoff := time.Now().AddDate(0, 0, -*maxAgeDays)

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	cmdTag, err := pool.Exec(context.Background(),
		`DELETE FROM lotteries WHERE resolved_at < $1`, cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "purge failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("purged %d lottery records older than %s\n", cmdTag.RowsAffected(), cutoff.Format(time.RFC3339))
}
