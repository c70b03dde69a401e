package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	prefetchJob      *PrefetchJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	PrefetchJob      *PrefetchJob
	Logger           zerolog.Logger
}

// PrefetchMessage triggers a cache warming job. StartDate and EndDate are
// YYYY-MM-DD and only used for the prefetch_window job type.
type PrefetchMessage struct {
	JobType   string `json:"job_type"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		prefetchJob:      cfg.PrefetchJob,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until the context is
// cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var prefetchMsg PrefetchMessage
	if err := json.Unmarshal(msg.Data, &prefetchMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch prefetchMsg.JobType {
	case "prefetch_all":
		err = h.handlePrefetchAll(ctx)
	case "prefetch_window":
		err = h.handlePrefetchWindow(ctx, prefetchMsg)
	default:
		logger.Warn().Str("job_type", prefetchMsg.JobType).Msg("unknown job type")
		msg.Ack() // prevent redelivery of unparseable work
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Str("job_type", prefetchMsg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handlePrefetchAll(ctx context.Context) error {
	result := h.prefetchJob.Run(ctx)
	if result.Failed > result.Successful {
		return fmt.Errorf("too many prefetch failures: %d/%d", result.Failed, result.Windows)
	}
	return nil
}

func (h *PubSubHandler) handlePrefetchWindow(ctx context.Context, msg PrefetchMessage) error {
	start, err := time.Parse("2006-01-02", msg.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date %q: %w", msg.StartDate, err)
	}
	endDay, err := time.Parse("2006-01-02", msg.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date %q: %w", msg.EndDate, err)
	}
	if endDay.Before(start) {
		return fmt.Errorf("end_date %q precedes start_date %q", msg.EndDate, msg.StartDate)
	}

	// Cover the end day's full 24 hours in the upstream's hour encoding.
	window := Window{
		Start: start.Add(time.Hour),
		End:   endDay.Add(24 * time.Hour),
	}
	return h.prefetchJob.WarmWindow(ctx, window)
}
