package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ambiyansyah-risyal/ajarin"
)

func main() {
	// Display version information
	fmt.Printf("Ajarin Version: %s\n\n", ajarin.GetVersion())

	cfg, err := ajarin.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	kv, err := ajarin.OpenBoltStore("ajarin-session.db")
	if err != nil {
		log.Fatalf("credential store: %v", err)
	}
	defer kv.Close()

	client := ajarin.New(
		ajarin.WithConfig(cfg),
		ajarin.WithCredentialStore(ajarin.NewCredentialStore(kv)),
		ajarin.WithBackoff(500*time.Millisecond, 10*time.Second, time.Second),
		ajarin.WithCircuitBreaker(ajarin.CircuitBreakerConfig{
			FailureThreshold: 3,
			RecoveryTimeout:  5 * time.Second,
			SuccessThreshold: 1,
		}),
		ajarin.WithMetrics(),
		ajarin.WithSimpleLogger(), // Enable debug logging
	)

	ctx := context.Background()

	// Example 1: Public route, no Authorization header
	fmt.Println("=== Example 1: Public topics ===")
	var topics []string
	if err := client.GetJSON(ctx, "/modules/public/topics", &topics); err != nil {
		log.Printf("GET topics failed: %v", err)
	} else {
		fmt.Printf("topics: %v\n", topics)
	}

	// Example 2: Authenticated flow with automatic refresh on 401
	fmt.Println("\n=== Example 2: Login + progress write ===")
	if err := client.Login(ctx, "student@example.com", "s3cret"); err != nil {
		log.Printf("login failed: %v", err)
		return
	}

	progress := map[string]any{"lesson_id": 42, "completed": true}
	if err := client.PostJSON(ctx, "/users/progress", progress, nil,
		ajarin.WithRequestMaxRetries(3)); err != nil {
		log.Printf("progress write failed: %v", err)
	} else {
		fmt.Println("progress recorded")
	}

	if err := client.Logout(ctx); err != nil {
		log.Printf("logout failed: %v", err)
	}
}
