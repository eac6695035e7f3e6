package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/AegisMaint/pkg/aegismaint"
)

// Drives the agent from readings produced by the caller and prints every
// exported decision.
func main() {
	flow, err := aegismaint.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(batch []aegismaint.Decision) error {
		for _, d := range batch {
			fmt.Printf("%s action=%s severity=%s score=%d override=%t\n",
				d.Timestamp.Format(time.RFC3339Nano),
				d.Action,
				d.Severity,
				d.Score,
				d.Override,
			)
		}
		return nil
	}

	feed := aegismaint.NewExternalFeed(16)
	go publishRamp(ctx, feed)

	if err := flow.
		StreamIN(aegismaint.StreamInFeed(feed)).
		Run(ctx, aegismaint.StreamOutCallback("stdout", callback)); err != nil {
		log.Fatalf("agent error: %v", err)
	}
}

// publishRamp heats the machine up one degree per second until it trips.
func publishRamp(ctx context.Context, feed *aegismaint.ExternalFeed) {
	defer feed.Close()
	for temp := 74.0; temp <= 90; temp++ {
		r := aegismaint.NewReading(time.Now(), map[aegismaint.Channel]float64{
			aegismaint.Temperature: temp,
			aegismaint.Vibration:   1.0,
			aegismaint.Pressure:    100,
		})
		if err := feed.Publish(ctx, r); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
