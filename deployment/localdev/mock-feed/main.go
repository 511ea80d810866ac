package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/miradorstack/flightwatch/internal/source"
)

func main() {
	broker := flag.String("broker", envOr("MOCK_FEED_BROKER", "tcp://localhost:1883"), "MQTT broker URL")
	topic := flag.String("topic", envOr("MOCK_FEED_TOPIC", "aircraft/4X-EKA/snapshot"), "topic to publish snapshots on")
	profile := flag.String("profile", "", "replay profile YAML (built-in flight when empty)")
	interval := flag.Duration("interval", 3*time.Second, "delay between snapshots")
	flag.Parse()

	replay, err := source.LoadReplay(*profile)
	if err != nil {
		log.Fatalf("load profile: %v", err)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID("flightwatch-mock-feed").
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("connect %s: %v", *broker, token.Error())
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("publishing %q (%d frames) to %s every %s", replay.Name(), replay.Len(), *topic, *interval)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		snap, err := replay.Next(ctx)
		if err != nil {
			log.Printf("mock feed stopped: %v", err)
			return
		}
		payload, err := json.Marshal(snap.Fields())
		if err != nil {
			log.Fatalf("encode snapshot: %v", err)
		}
		token := client.Publish(*topic, 0, false, payload)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			log.Printf("publish failed: %v", token.Error())
		} else {
			log.Printf("published %s snapshot at %.0f ft", snap.Phase, snap.Altitude)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
