package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultAuditPath is where the consumer appends one line per event.
var DefaultAuditPath = filepath.Join("logs", "audit.log")

// AuditConsumer listens to the rating and store queues and appends a
// single-line, human-friendly record of every event to an audit file.
type AuditConsumer struct {
	URL  string
	Path string
	Log  *zap.Logger
}

// NewAuditConsumer returns a consumer for url writing to path.  Empty
// values fall back to DefaultURL and DefaultAuditPath.
func NewAuditConsumer(url, path string, log *zap.Logger) *AuditConsumer {
	if url == "" {
		url = DefaultURL
	}
	if path == "" {
		path = DefaultAuditPath
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditConsumer{URL: url, Path: path, Log: log}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff capped at 30s.  Processing
// errors are logged and the offending message rejected so the server
// keeps operating.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("audit consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("audit consumer: set QoS failed", zap.Error(err))
	}

	ratings, err := c.subscribe(ch, RatingSubmittedQueue)
	if err != nil {
		return err
	}
	stores, err := c.subscribe(ch, StoreLifecycleQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d     amqp.Delivery
			ok    bool
			queue string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-ratings:
			queue = RatingSubmittedQueue
		case d, ok = <-stores:
			queue = StoreLifecycleQueue
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handle(queue, d.Body); err != nil {
			c.Log.Error("audit consumer: handle message failed", zap.String("queue", queue), zap.Error(err))
			_ = d.Nack(false, false) // do not requeue, avoids tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *AuditConsumer) subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "queue declare %s", queue)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "queue consume %s", queue)
	}
	return msgs, nil
}

func (c *AuditConsumer) handle(queue string, body []byte) error {
	line, err := FormatAuditLine(queue, body)
	if err != nil {
		return err
	}
	return appendLine(c.Path, line)
}

// FormatAuditLine renders one event as an audit log line terminated by a
// newline.
func FormatAuditLine(queue string, body []byte) (string, error) {
	switch queue {
	case RatingSubmittedQueue:
		var ev RatingSubmittedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", errors.Wrap(err, "unmarshal rating event")
		}
		return fmt.Sprintf("[%s] Rating submitted | event_id=%s | rating_id=%d | user_id=%d | store_id=%d | score=%d | average=%.2f\n",
			ev.SubmittedAt, ev.EventID, ev.RatingID, ev.UserID, ev.StoreID, ev.Score, ev.AverageRating), nil
	case StoreLifecycleQueue:
		var ev StoreLifecycleEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", errors.Wrap(err, "unmarshal store event")
		}
		action := "Store event"
		switch ev.Type {
		case StoreCreated:
			action = "Store created"
		case StoreDeleted:
			action = "Store deleted"
		}
		return fmt.Sprintf("[%s] %s | event_id=%s | store_id=%d | owner_id=%d | name=%q\n",
			ev.OccurredAt, action, ev.EventID, ev.StoreID, ev.OwnerID, ev.StoreName), nil
	}
	return "", errors.Errorf("unknown queue %q", queue)
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir logs")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return errors.Wrap(err, "write log")
	}
	return nil
}
