package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/store/sqlite"
)

// Seeds a handful of jobs in assorted states so the listing and status
// endpoints have something to show during local development.
func main() {
	dsn := flag.String("dsn", "file:gateway.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000", "SQLite DSN")
	userID := flag.String("user", "dev-user", "User the seeded jobs belong to")
	flag.Parse()

	store, err := sqlite.Open(*dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()

	prompts := []struct {
		prompt   string
		priority domain.JobPriority
	}{
		{"Summarize the plot of Moby Dick", domain.PriorityNormal},
		{"Translate 'hello world' to French", domain.PriorityHigh},
		{"Write a limerick about databases", domain.PriorityLow},
	}

	for _, p := range prompts {
		input, _ := json.Marshal(map[string]interface{}{
			"prompt":     p.prompt,
			"max_tokens": 256,
		})

		job := &domain.Job{
			ID:                 uuid.NewString(),
			ModelName:          "qwen-3-72b",
			ModelVersion:       "v2.0.0",
			UserID:             *userID,
			Status:             domain.StatusPending,
			Priority:           p.priority,
			Input:              input,
			EstimatedCostCents: 10,
			CreatedAt:          time.Now().UTC(),
		}

		if err := store.Create(ctx, job); err != nil {
			log.Fatalf("seed job: %v", err)
		}
		fmt.Printf("Created job %s (%s, priority %s)\n", job.ID, job.ModelName, job.Priority)
	}

	// One completed job so the terminal path shows up in listings too
	completed := &domain.Job{
		ID:                 uuid.NewString(),
		ModelName:          "sdxl",
		ModelVersion:       "v1.0",
		UserID:             *userID,
		Status:             domain.StatusPending,
		Priority:           domain.PriorityNormal,
		Input:              json.RawMessage(`{"prompt":"a lighthouse at dusk","width":1024,"height":1024}`),
		EstimatedCostCents: 5,
		CreatedAt:          time.Now().UTC(),
	}
	if err := store.Create(ctx, completed); err != nil {
		log.Fatalf("seed job: %v", err)
	}
	if err := store.MarkProcessing(ctx, completed.ID, time.Now().UTC()); err != nil {
		log.Fatalf("seed transition: %v", err)
	}
	if err := store.Complete(ctx, completed.ID, json.RawMessage(`{"image_url":"http://example.com/out.png"}`), 5, time.Now().UTC()); err != nil {
		log.Fatalf("seed transition: %v", err)
	}
	fmt.Printf("Created completed job %s\n", completed.ID)
}
