package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/mailer"
	"github.com/freshfork/mealkit-backend/pkg/metrics"
	"github.com/freshfork/mealkit-backend/pkg/outbox"
	"github.com/freshfork/mealkit-backend/pkg/outbox/payloads"
)

// Sender delivers one queued notification event. Used by the worker; never
// called on the request path.
type Sender struct {
	mailer      mailer.Mailer
	logg        *logger.Logger
	metrics     *metrics.PipelineMetrics
	sendTimeout time.Duration
}

func NewSender(m mailer.Mailer, logg *logger.Logger, pm *metrics.PipelineMetrics, sendTimeout time.Duration) *Sender {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Sender{mailer: m, logg: logg, metrics: pm, sendTimeout: sendTimeout}
}

// Deliver decodes the outbox row and sends the email with a bounded timeout.
func (s *Sender) Deliver(ctx context.Context, row models.OutboxEvent) error {
	if row.EventType != enums.EventNotificationRequested {
		return fmt.Errorf("unsupported outbox event type %q", row.EventType)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return fmt.Errorf("decoding outbox envelope: %w", err)
	}
	var event payloads.NotificationRequestedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		return fmt.Errorf("decoding notification payload: %w", err)
	}

	msg, err := Render(event)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.mailer.Send(sendCtx, msg); err != nil {
		s.metrics.IncNotificationSend(string(event.Template), "failure")
		return err
	}
	s.metrics.IncNotificationSend(string(event.Template), "success")

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"template":  string(event.Template),
		"recipient": event.Recipient,
		"event_id":  envelope.EventID,
	})
	s.logg.Info(logCtx, "notification sent")
	return nil
}
