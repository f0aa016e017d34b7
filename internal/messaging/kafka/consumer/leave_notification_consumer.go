package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"leaveflow/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Notifier receives decoded leave request events. Delivery channels (email,
// chat, in-app) live behind this boundary; the core only emits typed events.
//
//go:generate mockgen -source=leave_notification_consumer.go -destination=mock/notifier_mock.go -package=mock
type Notifier interface {
	Notify(ctx context.Context, event events.LeaveRequestEvent) error
}

// ConsumeLeaveRequestEvents reads the leave request topic and hands each
// event to the notifier. Messages are committed only after the notifier
// returns, so a crashed consumer re-delivers instead of dropping.
func ConsumeLeaveRequestEvents(
	ctx context.Context,
	reader *kafkago.Reader,
	notifier Notifier,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave")
	log.Info("leave notification consumer started", zap.String("topic", events.LeaveRequestTopic))

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				log.Info("leave notification consumer stopped")
				return
			}
			log.Error("fetch message failed", zap.Error(err))
			continue
		}

		var event events.LeaveRequestEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave event failed",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			// Poison message, skip it.
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		if err := notifier.Notify(ctx, event); err != nil {
			log.Error("notify failed",
				zap.String("event_type", event.EventType),
				zap.String("leave_request_id", event.LeaveRequestID),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message failed", zap.Error(err))
		}
	}
}

// LogNotifier is the default notifier; it records every event through the
// audit log stream.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, event events.LeaveRequestEvent) error {
	n.logger.Info("leave request notification",
		zap.String("event_type", event.EventType),
		zap.String("leave_request_id", event.LeaveRequestID),
		zap.String("request_number", event.RequestNumber),
		zap.String("user_id", event.UserID),
		zap.String("status", event.Status),
		zap.String("total_days", event.TotalDays),
		zap.String("actor_id", event.ActorID),
	)
	return nil
}
