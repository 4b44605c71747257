package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"devquest/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config and connect to postgres.
// 2) Build the contest engine wiring.
// 3) Run consumers, the outbox relay and the voting window scheduler until a
// termination signal arrives.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("devquest contest worker starting")
	app, err := bootstrap.BuildWorker(ctx)
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("worker shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Printf("devquest contest worker stopped with error: %v", err)
		return
	}
}
