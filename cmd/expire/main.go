// Command expire sweeps until nothing is due and exits, for use from cron.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"time"

	"InternHub-backend/internal/config"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/events"
	"InternHub-backend/internal/maintenance"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	os.Exit(run(config.Load()))
}

// run drains every due transition and returns the process exit code: 1
// when any record failed to transition or the timeout cut the run short.
func run(cfg *config.AppConfig) int {
	db, err := database.GetMainDB(cfg)
	if err != nil {
		log.Printf("Database failed to initialize: %v", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		if p, err := events.NewAMQPPublisher(cfg.AMQPURL, ""); err != nil {
			slog.Warn("event publishing disabled", slog.String("error", err.Error()))
		} else {
			publisher = p
		}
	}
	defer func() { _ = publisher.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, _ := maintenance.NewSweeper(db, publisher).Drain(ctx)
	if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
		log.Printf("failed to print result: %v", err)
		return 1
	}
	if res.Failed > 0 || ctx.Err() != nil {
		return 1
	}
	return 0
}
