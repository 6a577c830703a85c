package audit

import (
	"context"

	"github.com/sirupsen/logrus"

	"attendance/internal/metrics"
	"attendance/internal/queue"
)

// Consumer drains change events and writes one audit line per event.
type Consumer struct {
	queue   queue.Queue
	metrics *metrics.Metrics
	logger  logrus.FieldLogger
}

func NewConsumer(q queue.Queue, m *metrics.Metrics, logger logrus.FieldLogger) *Consumer {
	if m == nil {
		m = metrics.NewMock()
	}
	return &Consumer{queue: q, metrics: m, logger: logger}
}

// Run blocks until ctx is cancelled or the queue closes its channel.
// It returns the number of events handled.
func (c *Consumer) Run(ctx context.Context) (int, error) {
	messages, err := c.queue.Consume(ctx)
	if err != nil {
		return 0, err
	}

	handled := 0
	for msg := range messages {
		c.handle(msg)
		handled++
	}
	return handled, nil
}

func (c *Consumer) handle(msg queue.Message) {
	fields := logrus.Fields{
		"event":   msg.Type,
		"project": msg.ProjectID,
		"at":      msg.At,
	}
	if msg.EntryID != "" {
		fields["entry"] = msg.EntryID
	}
	c.logger.WithFields(fields).Info("change")
	c.metrics.RecordEvent(msg.Type)
}
