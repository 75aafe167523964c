package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reservehq/reserve-personnel/internal/core/events"
	"github.com/reservehq/reserve-personnel/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event bus utilities",
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a smoke-test event and observe its delivery",
	Long: `Publishes a throwaway event of the given type (e.g. account_request.approved)
to a fresh in-process bus with a logging subscriber attached. Useful for
verifying handler wiring and payload shapes without a running server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishSmokeTestEvent(cmd.Context(), args[0])
	},
}

var eventData string

func publishSmokeTestEvent(ctx context.Context, eventType string) error {
	log := logger.L()
	bus := events.NewEventBus(log)

	bus.Subscribe(eventType, func(_ context.Context, event events.Event) error {
		log.Info("smoke-test subscriber received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	event := events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"message": eventData,
			"source":  "cli",
		},
	}

	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	fmt.Printf("delivered %s (%s)\n", eventType, event.ID)
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "hello", "payload message for the smoke-test event")
	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
