package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/AegisMaint"
)

func main() {
	flow, err := aegismaint.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := aegismaint.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("alerts", batches)

	if err := flow.Run(ctx, aegismaint.StreamOutSink(sink)); err != nil {
		log.Fatalf("agent error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []aegismaint.Decision) {
	for batch := range batches {
		for _, d := range batch {
			if d.Override {
				fmt.Printf("[%s] %s safety shutdown, health=%v\n", name, time.Now().Format(time.RFC3339), d.Health)
			}
		}
	}
}
