package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wardenworks/imgwarden/internal/config"
	"github.com/wardenworks/imgwarden/internal/messaging"
	natsclient "github.com/wardenworks/imgwarden/internal/messaging/nats"
	"github.com/wardenworks/imgwarden/internal/models"
)

var (
	seedCount  int
	seedBucket string
	seedStale  int
)

var (
	seedInfoColor    = color.New(color.FgCyan)
	seedSuccessColor = color.New(color.FgGreen, color.Bold)
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Publish synthetic storage events for testing",
	Long: `Generate fake object-created events and publish them to the storage
events stream. Useful for exercising the pipeline locally without a real
bucket notifier. --stale marks a percentage of events with an old origin
timestamp so the staleness guard path is exercised too.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed()
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 10, "number of events to publish")
	seedCmd.Flags().StringVar(&seedBucket, "bucket", "uploads", "source bucket name")
	seedCmd.Flags().IntVar(&seedStale, "stale", 0, "percentage of events published with a stale timestamp")
}

func runSeed() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := natsclient.NewJetStreamClient(natsclient.Config{
		URL:  cfg.NATS.URL,
		Name: "imgwarden-seeder",
	})
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	streamCfg := natsclient.DefaultStreamConfig(messaging.StreamStorageEvents, []string{messaging.SubjectObjectsCreated})
	if err := client.EnsureStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	faker := gofakeit.New(0)
	extensions := []string{"jpg", "png", "gif", "webp"}
	contentTypes := map[string]string{
		"jpg":  "image/jpeg",
		"png":  "image/png",
		"gif":  "image/gif",
		"webp": "image/webp",
	}

	for i := 0; i < seedCount; i++ {
		ext := extensions[faker.Number(0, len(extensions)-1)]
		ts := time.Now().UTC()
		if seedStale > 0 && faker.Number(1, 100) <= seedStale {
			ts = ts.Add(-time.Duration(faker.Number(30, 3600)) * time.Second)
		}

		event := models.ObjectCreatedEvent{
			Bucket:      seedBucket,
			Name:        fmt.Sprintf("%s/%s.%s", faker.Username(), faker.Word(), ext),
			ContentType: contentTypes[ext],
			Size:        int64(faker.Number(10_000, 5_000_000)),
			Timestamp:   ts.Format(time.RFC3339Nano),
		}

		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := client.PublishSync(ctx, messaging.SubjectObjectsCreated, data); err != nil {
			return fmt.Errorf("publish event %d: %w", i+1, err)
		}
		seedInfoColor.Printf("published %s/%s\n", event.Bucket, event.Name)
	}

	seedSuccessColor.Printf("✓ %d events published to %s\n", seedCount, messaging.SubjectObjectsCreated)
	return nil
}
