// Command audit-test is a manual smoke harness for the async audit
// publisher: it emits events through a small buffer to exercise drop
// behavior, then verifies the store contents after a drain.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"authgate/internal/audit"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := audit.NewInMemoryStore()
	publisher := audit.NewPublisher(
		store,
		audit.WithAsyncBuffer(10), // small buffer so the flood below triggers drops
		audit.WithPublisherLogger(logger),
	)

	ctx := context.Background()
	userID := "4f4aa6a4-5be0-4c91-9d4e-3a6e40d72b2b"

	fmt.Println("1. Emitting 5 events (should all be stored)...")
	for i := 0; i < 5; i++ {
		event := audit.Event{
			Action:   string(audit.EventLoginSuccess),
			Severity: audit.SeverityInfo,
			UserID:   userID,
			IP:       "203.0.113.9",
			Details:  map[string]string{"sequence": fmt.Sprintf("%d", i+1)},
		}
		if err := publisher.Emit(ctx, event); err != nil {
			fmt.Printf("   event %d failed: %v\n", i+1, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	fmt.Println("2. Flooding buffer with 50 events (buffer size is 10)...")
	dropped := 0
	for i := 0; i < 50; i++ {
		event := audit.Event{
			Action:   string(audit.EventAuthFailed),
			Severity: audit.SeverityLow,
			UserID:   userID,
		}
		if err := publisher.Emit(ctx, event); err != nil {
			dropped++
		}
	}
	fmt.Printf("   emitted 50 events, %d dropped due to full buffer\n", dropped)

	// Close drains whatever the worker still holds.
	publisher.Close()

	events, err := store.ListByUser(ctx, userID)
	if err != nil {
		fmt.Printf("list events: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("3. Total events in store: %d\n", len(events))
}
